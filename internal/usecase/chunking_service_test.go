package usecase

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/adapter/chunker"
	"docrag/internal/domain"
)

type stubStrategy struct {
	segments []domain.TextSegment
	err      error
	calls    int
}

func (s *stubStrategy) SplitText(string, int, int) ([]domain.TextSegment, error) {
	s.calls++
	return s.segments, s.err
}

func (s *stubStrategy) EstimateChunkCount(string, int, int) int {
	return len(s.segments)
}

func newTestDocument(t *testing.T) *domain.Document {
	t.Helper()
	doc, err := domain.NewDocument("test.txt", nil, domain.DocumentMetadata{FileName: "test.txt"})
	require.NoError(t, err)
	return doc
}

func TestCreateChunks_EmptyText(t *testing.T) {
	svc := NewChunkingService()
	doc := newTestDocument(t)
	strategy := &stubStrategy{}

	for _, text := range []string{"", "   \n\t  "} {
		chunks, err := svc.CreateChunks(doc, text, strategy, 100, 20)
		require.NoError(t, err)
		assert.Empty(t, chunks)
		assert.NotNil(t, chunks)
	}
	assert.Zero(t, strategy.calls)
}

func TestCreateChunks_SingleChunk(t *testing.T) {
	svc := NewChunkingService()
	doc := newTestDocument(t)
	text := "short text"

	chunks, err := svc.CreateChunks(doc, text, chunker.NewFixedWindowStrategy(), 100, 20)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	c := chunks[0]
	assert.Equal(t, text, c.Content)
	assert.Equal(t, doc.ID, c.DocumentID)
	assert.Equal(t, 0, c.Metadata.ChunkIndex)
	assert.Equal(t, 1, c.Metadata.TotalChunks)
	assert.Zero(t, c.Metadata.OverlapWithPrevious)
	assert.Zero(t, c.Metadata.OverlapWithNext)
	assert.True(t, c.Metadata.IsFirst())
	assert.True(t, c.Metadata.IsLast())
}

func TestCreateChunks_HundredCharacterScenario(t *testing.T) {
	svc := NewChunkingService()
	doc := newTestDocument(t)
	text := strings.Repeat("0123456789", 10)

	chunks, err := svc.CreateChunks(doc, text, chunker.NewFixedWindowStrategy(), 30, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 5)

	ranges := [][2]int{{0, 30}, {20, 50}, {40, 70}, {60, 90}, {80, 100}}
	for i, c := range chunks {
		assert.Equal(t, ranges[i][0], c.Metadata.StartPosition, "chunk %d start", i)
		assert.Equal(t, ranges[i][1], c.Metadata.EndPosition, "chunk %d end", i)
		assert.Equal(t, text[ranges[i][0]:ranges[i][1]], c.Content)

		wantPrev, wantNext := 10, 10
		if i == 0 {
			wantPrev = 0
		}
		if i == len(chunks)-1 {
			wantNext = 0
		}
		assert.Equal(t, wantPrev, c.Metadata.OverlapWithPrevious, "chunk %d", i)
		assert.Equal(t, wantNext, c.Metadata.OverlapWithNext, "chunk %d", i)
	}
}

func TestCreateChunks_IndexAndOverlapInvariants(t *testing.T) {
	svc := NewChunkingService()
	doc := newTestDocument(t)
	text := strings.Repeat("これはテストの文です。This is a sentence. ", 40)

	for _, name := range []string{chunker.Fixed, chunker.Sentence, chunker.Recursive} {
		t.Run(name, func(t *testing.T) {
			strategy, err := chunker.New(name, chunker.Options{})
			require.NoError(t, err)

			chunks, err := svc.CreateChunks(doc, text, strategy, 120, 30)
			require.NoError(t, err)
			require.NotEmpty(t, chunks)

			n := len(chunks)
			for i, c := range chunks {
				assert.Equal(t, i, c.Metadata.ChunkIndex)
				assert.Equal(t, n, c.Metadata.TotalChunks)
				assert.Equal(t, c.Metadata.Size(), len([]rune(c.Content)))
				if i < n-1 {
					next := chunks[i+1]
					want := max(0, c.Metadata.EndPosition-next.Metadata.StartPosition)
					assert.Equal(t, want, c.Metadata.OverlapWithNext)
					assert.Equal(t, want, next.Metadata.OverlapWithPrevious)
				}
			}
			assert.Zero(t, chunks[0].Metadata.OverlapWithPrevious)
			assert.Zero(t, chunks[n-1].Metadata.OverlapWithNext)
		})
	}
}

func TestCreateChunks_ParameterValidation(t *testing.T) {
	svc := NewChunkingService()
	doc := newTestDocument(t)

	tests := []struct {
		name    string
		size    int
		overlap int
		param   string
		message string
	}{
		{"zero size", 0, 0, "chunk_size", "chunk size must be positive"},
		{"negative size", -5, 0, "chunk_size", "chunk size must be positive"},
		{"negative overlap", 100, -1, "overlap_size", "overlap size must be non-negative"},
		{"overlap equals size", 100, 100, "overlap_size", "overlap size must be less than chunk size"},
		{"overlap exceeds size", 100, 150, "overlap_size", "overlap size must be less than chunk size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy := &stubStrategy{}
			_, err := svc.CreateChunks(doc, "some text", strategy, tt.size, tt.overlap)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidParameter)
			assert.EqualError(t, err, tt.message)

			var perr *domain.InvalidParameterError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.param, perr.Param)
			assert.Zero(t, strategy.calls)

			_, err = svc.CalculateChunkingMetrics("some text", tt.size, tt.overlap)
			assert.EqualError(t, err, tt.message)
		})
	}
}

func TestCreateChunks_ValidatesBeforeEmptyCheck(t *testing.T) {
	svc := NewChunkingService()
	_, err := svc.CreateChunks(newTestDocument(t), "", &stubStrategy{}, 0, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestCreateChunks_StrategyErrorPropagates(t *testing.T) {
	svc := NewChunkingService()
	boom := errors.New("tokenizer unavailable")

	chunks, err := svc.CreateChunks(newTestDocument(t), "text", &stubStrategy{err: boom}, 100, 10)
	assert.Same(t, boom, err)
	assert.Nil(t, chunks)
}

func TestCreateChunks_OverlapNeverNegative(t *testing.T) {
	svc := NewChunkingService()
	text := "aaaa    bbbb"
	strategy := &stubStrategy{segments: []domain.TextSegment{
		{Text: "aaaa", Start: 0, End: 4},
		{Text: "bbbb", Start: 8, End: 12},
	}}

	chunks, err := svc.CreateChunks(newTestDocument(t), text, strategy, 4, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Zero(t, chunks[0].Metadata.OverlapWithNext)
	assert.Zero(t, chunks[1].Metadata.OverlapWithPrevious)
}

func TestCreateChunks_RejectsInconsistentSegment(t *testing.T) {
	svc := NewChunkingService()
	strategy := &stubStrategy{segments: []domain.TextSegment{{Text: "abc", Start: 0, End: 5}}}

	chunks, err := svc.CreateChunks(newTestDocument(t), "abcde", strategy, 10, 0)
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Nil(t, chunks)
}

func TestUpdateDocumentChunks(t *testing.T) {
	svc := NewChunkingService()
	doc := newTestDocument(t)

	first, err := svc.CreateChunks(doc, strings.Repeat("x", 50), chunker.NewFixedWindowStrategy(), 20, 0)
	require.NoError(t, err)
	require.NoError(t, svc.UpdateDocumentChunks(doc, first))
	assert.Equal(t, 3, doc.ChunkCount())

	second, err := svc.CreateChunks(doc, "replacement", chunker.NewFixedWindowStrategy(), 20, 0)
	require.NoError(t, err)
	require.NoError(t, svc.UpdateDocumentChunks(doc, second))

	got := doc.Chunks()
	require.Len(t, got, 1)
	assert.Equal(t, "replacement", got[0].Content)
}

func TestUpdateDocumentChunks_RejectsForeignChunk(t *testing.T) {
	svc := NewChunkingService()
	doc := newTestDocument(t)
	other := newTestDocument(t)

	own, err := svc.CreateChunks(doc, "mine", chunker.NewFixedWindowStrategy(), 20, 0)
	require.NoError(t, err)
	require.NoError(t, svc.UpdateDocumentChunks(doc, own))

	foreign, err := svc.CreateChunks(other, "theirs", chunker.NewFixedWindowStrategy(), 20, 0)
	require.NoError(t, err)

	err = svc.UpdateDocumentChunks(doc, append(own, foreign...))
	assert.ErrorIs(t, err, domain.ErrChunkDocumentMismatch)
	assert.Equal(t, 1, doc.ChunkCount(), "existing chunks are kept on failure")
}

func TestCalculateChunkingMetrics(t *testing.T) {
	svc := NewChunkingService()

	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"shorter than chunk", strings.Repeat("a", 50), 1},
		{"exactly chunk", strings.Repeat("a", 100), 1},
		{"one step over", strings.Repeat("a", 101), 2},
		{"two hundred fifty", strings.Repeat("a", 250), 3},
		{"multibyte counted as characters", strings.Repeat("あ", 250), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := svc.CalculateChunkingMetrics(tt.text, 100, 20)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.EstimatedChunkCount)
			assert.Equal(t, len([]rune(tt.text)), m.TextLength)
			assert.Equal(t, 100, m.ChunkSize)
			assert.Equal(t, 20, m.OverlapSize)
		})
	}
}

func TestChunkingService_ConcurrentUse(t *testing.T) {
	svc := NewChunkingService()
	strategy := chunker.NewFixedWindowStrategy()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			doc, err := domain.NewDocument("doc", nil, domain.DocumentMetadata{})
			if err != nil {
				errs <- err
				return
			}
			chunks, err := svc.CreateChunks(doc, strings.Repeat("z", 100+n), strategy, 30, 10)
			if err != nil {
				errs <- err
				return
			}
			errs <- svc.UpdateDocumentChunks(doc, chunks)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
