package service

import (
	"context"
	"errors"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/eatbalance/web/internal"
	"github.com/eatbalance/web/internal/planparse"
	"github.com/eatbalance/web/internal/storage"
)

// Query parameters carrying the totals from the plan page to the menu page.
const (
	ParamKcal     = "kcal"
	ParamProteinG = "protein_g"
	ParamCarbG    = "carb_g"
	ParamFatG     = "fat_g"
)

// Prefill sources.
const (
	PrefillQuery   = "query"
	PrefillHandoff = "handoff"
)

// EncodeTotals writes the shortest decimal that parses back to the same
// float64, so nothing is rounded in transit.
func EncodeTotals(t internal.Totals) url.Values {
	q := url.Values{}
	q.Set(ParamKcal, formatFloat(t.Kcal))
	q.Set(ParamProteinG, formatFloat(t.ProteinG))
	q.Set(ParamCarbG, formatFloat(t.CarbG))
	q.Set(ParamFatG, formatFloat(t.FatG))
	return q
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// DecodeTotals reads the four parameters. ok is false when none is present;
// a partial or malformed set is a validation error.
func DecodeTotals(q url.Values) (t internal.Totals, ok bool, err error) {
	keys := []string{ParamKcal, ParamProteinG, ParamCarbG, ParamFatG}
	dst := []*float64{&t.Kcal, &t.ProteinG, &t.CarbG, &t.FatG}

	present := 0
	for _, k := range keys {
		if q.Get(k) != "" {
			present++
		}
	}
	if present == 0 {
		return internal.Totals{}, false, nil
	}
	if present < len(keys) {
		return internal.Totals{}, false, internal.ValidationError("kcal, protein_g, carb_g and fat_g must be sent together", nil)
	}
	for i, k := range keys {
		v, perr := planparse.ParseDecimal(q.Get(k))
		if perr != nil {
			return internal.Totals{}, false, internal.ValidationError(k+" is not a number", perr)
		}
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return internal.Totals{}, false, internal.ValidationError(k+" must be a finite number", nil)
		}
		*dst[i] = v
	}
	if err := validate.Struct(t); err != nil {
		return internal.Totals{}, false, validationError(err)
	}
	return t, true, nil
}

// HandoffService stores and resolves the totals forwarded between screens.
type HandoffService struct {
	repo   storage.HandoffRepository
	ttl    time.Duration
	logger internal.Logger
	now    func() time.Time
}

func NewHandoffService(repo storage.HandoffRepository, ttl time.Duration, logger internal.Logger) *HandoffService {
	return &HandoffService{repo: repo, ttl: ttl, logger: logger, now: time.Now}
}

// Put replaces the session's handoff slot.
func (h *HandoffService) Put(ctx context.Context, sessionID string, totals internal.Totals) error {
	err := h.repo.PutHandoff(ctx, &internal.Handoff{
		SessionID: sessionID,
		Totals:    totals,
		ExpiresAt: h.now().Add(h.ttl).UTC(),
	})
	if err != nil {
		h.logger.Errorf("handoff: failed to store slot for %s: %v", sessionID, err)
		return internal.InternalError(err)
	}
	return nil
}

// Prefill resolves the menu page's totals: query parameters first, then the
// handoff slot.
func (h *HandoffService) Prefill(ctx context.Context, sessionID string, q url.Values) (internal.Totals, string, error) {
	t, ok, err := DecodeTotals(q)
	if err != nil {
		return internal.Totals{}, "", err
	}
	if ok {
		return t, PrefillQuery, nil
	}
	slot, err := h.repo.GetHandoff(ctx, sessionID, h.now())
	if errors.Is(err, storage.ErrNotFound) {
		return internal.Totals{}, "", internal.NotFoundError("No totals to prefill; calculate your plan first")
	}
	if err != nil {
		h.logger.Errorf("handoff: failed to read slot for %s: %v", sessionID, err)
		return internal.Totals{}, "", internal.InternalError(err)
	}
	return slot.Totals, PrefillHandoff, nil
}

// Purge drops expired slots; called by the janitor.
func (h *HandoffService) Purge(ctx context.Context) (int, error) {
	return h.repo.PurgeHandoffs(ctx, h.now())
}
