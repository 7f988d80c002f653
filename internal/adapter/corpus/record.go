package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"folio/internal/domain"
)

var validate = validator.New()

// record is one element of an embeddings file as produced by the offline
// generation step.
type record struct {
	Source    string    `json:"source" validate:"max=256"`
	Text      string    `json:"text" validate:"required"`
	Embedding []float32 `json:"embedding" validate:"required,min=1"`
}

// Decode reads a JSON array of records and returns the valid ones as entries.
// A malformed document is an error; individual bad records are dropped.
func Decode(r io.Reader, origin string, logger *zap.Logger) ([]domain.VectorEntry, error) {
	var records []domain.VectorEntry
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", origin, err)
	}
	return Sanitize(records, origin, logger), nil
}

// Sanitize drops records that cannot serve as entries: failed field
// validation, non-finite components, or a dimension different from the
// first valid record. Each drop is logged with its index.
func Sanitize(records []domain.VectorEntry, origin string, logger *zap.Logger) []domain.VectorEntry {
	if logger == nil {
		logger = zap.NewNop()
	}

	entries := make([]domain.VectorEntry, 0, len(records))
	dim := 0
	for i, rec := range records {
		if err := validateRecord(record(rec)); err != nil {
			logger.Warn("dropping corpus record",
				zap.String("origin", origin),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		if dim == 0 {
			dim = len(rec.Embedding)
		} else if len(rec.Embedding) != dim {
			logger.Warn("dropping corpus record",
				zap.String("origin", origin),
				zap.Int("index", i),
				zap.Error(fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, dim, len(rec.Embedding))))
			continue
		}
		entries = append(entries, domain.VectorEntry{
			Source:    strings.TrimSpace(rec.Source),
			Text:      rec.Text,
			Embedding: rec.Embedding,
		})
	}
	return entries
}

func validateRecord(rec record) error {
	if err := validate.Struct(rec); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: field %s failed %q", domain.ErrInvalidEntry, strings.ToLower(verrs[0].Field()), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidEntry, err)
	}
	for j, v := range rec.Embedding {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite embedding value at %d", domain.ErrInvalidEntry, j)
		}
	}
	return nil
}
