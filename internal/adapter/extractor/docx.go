package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"docrag/internal/domain"
)

const (
	DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	maxDocxPartSize = 64 << 20
)

// DocxExtractor reads the main document part of a Word file. Body
// paragraphs become lines; table rows become tab-separated lines, in
// document order.
type DocxExtractor struct{}

func NewDocxExtractor() *DocxExtractor {
	return &DocxExtractor{}
}

func (e *DocxExtractor) Supports(contentType string) bool {
	return baseType(contentType) == DocxContentType
}

func (e *DocxExtractor) Extract(ctx context.Context, content []byte, _ string) (domain.ExtractedText, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return domain.ExtractedText{}, fmt.Errorf("open docx: %w", err)
	}
	body, err := readZipPart(zr, "word/document.xml")
	if err != nil {
		return domain.ExtractedText{}, fmt.Errorf("read docx body: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return domain.ExtractedText{}, err
	}

	text, stats, err := parseDocxBody(body)
	if err != nil {
		return domain.ExtractedText{}, fmt.Errorf("parse docx body: %w", err)
	}

	meta := map[string]string{
		"content_type":    DocxContentType,
		"paragraph_count": strconv.Itoa(stats.paragraphs),
		"table_count":     strconv.Itoa(stats.tables),
	}
	// Core properties are optional.
	if core, err := readZipPart(zr, "docProps/core.xml"); err == nil {
		var props struct {
			Title   string `xml:"title"`
			Creator string `xml:"creator"`
		}
		if xml.Unmarshal(core, &props) == nil {
			if t := strings.TrimSpace(props.Title); t != "" {
				meta["title"] = t
			}
			if a := strings.TrimSpace(props.Creator); a != "" {
				meta["author"] = a
			}
		}
	}
	return domain.ExtractedText{Content: normalizeText(text), Metadata: meta}, nil
}

var errPartNotFound = errors.New("part not found")

func readZipPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		data, err := io.ReadAll(io.LimitReader(rc, maxDocxPartSize+1))
		if err != nil {
			return nil, err
		}
		if len(data) > maxDocxPartSize {
			return nil, fmt.Errorf("%s exceeds %d bytes", name, maxDocxPartSize)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s", errPartNotFound, name)
}

type docxStats struct {
	paragraphs int
	tables     int
}

// parseDocxBody walks WordprocessingML tokens. Nested tables are flattened
// into the cell that holds them.
func parseDocxBody(body []byte) (string, docxStats, error) {
	var (
		stats    docxStats
		lines    []string
		para     strings.Builder
		cell     strings.Builder
		row      []string
		inText   bool
		tblDepth int
	)

	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", stats, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tblDepth++
				if tblDepth == 1 {
					stats.tables++
				}
			case "tr":
				if tblDepth == 1 {
					row = row[:0]
				}
			case "tc":
				if tblDepth == 1 {
					cell.Reset()
				}
			case "p":
				para.Reset()
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text := para.String()
				if strings.TrimSpace(text) == "" {
					continue
				}
				if tblDepth > 0 {
					if cell.Len() > 0 {
						cell.WriteByte(' ')
					}
					cell.WriteString(strings.TrimSpace(text))
					continue
				}
				lines = append(lines, text)
				stats.paragraphs++
			case "tc":
				if tblDepth == 1 && cell.Len() > 0 {
					row = append(row, cell.String())
				}
			case "tr":
				if tblDepth == 1 && len(row) > 0 {
					lines = append(lines, strings.Join(row, "\t"))
				}
			case "tbl":
				tblDepth--
			}
		}
	}
	return strings.Join(lines, "\n"), stats, nil
}
