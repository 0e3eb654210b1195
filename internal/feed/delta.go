package feed

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rickgao/altrates/internal/model"
	"github.com/rickgao/altrates/internal/rates"
)

const (
	// Hub is the stream hub carrying market summaries.
	Hub = "coreHub"

	// MethodSummary carries summary deltas.
	MethodSummary = "updateSummaryState"

	// MethodSubscribe requests summary deltas.
	MethodSubscribe = "SubscribeToSummaryDeltas"
)

var marketName = regexp.MustCompile(`^[0-9A-Z]{2,}-[0-9A-Z]{2,}$`)

// Envelope is one stream frame.
type Envelope struct {
	Hub    string          `json:"hub"`
	Method string          `json:"method"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// SummaryState is the payload of an updateSummaryState frame.
type SummaryState struct {
	Deltas []Delta `json:"Deltas"`
}

// Delta is one market summary change.
type Delta struct {
	MarketName string   `json:"MarketName"`
	Last       *float64 `json:"Last"`
}

// Pair splits MarketName into its base and quote codes.
func (d Delta) Pair() (src, dst model.Code) {
	base, quote, _ := strings.Cut(d.MarketName, "-")
	return model.Code(base), model.Code(quote)
}

// SubscribeFrame returns the subscription request sent after connecting.
func SubscribeFrame() []byte {
	b, _ := json.Marshal(Envelope{Hub: Hub, Method: MethodSubscribe})
	return b
}

// ParseDeltas decodes a stream frame and extracts observed rates for pairs in cs.
// It returns handled=false for frames that are not summary updates.
// Any shape violation discards the whole frame with a *rates.ValidationError.
func ParseDeltas(data []byte, cs model.Currencies) (rates.Table, bool, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false, invalid("decode frame: %v", err)
	}
	if env.Method != MethodSummary {
		return nil, false, nil
	}

	var state SummaryState
	if len(env.Data) == 0 {
		return nil, true, invalid("missing data")
	}
	if err := json.Unmarshal(env.Data, &state); err != nil {
		return nil, true, invalid("decode summary: %v", err)
	}
	if err := state.validate(); err != nil {
		return nil, true, err
	}

	observed := rates.Table{}
	for _, d := range state.Deltas {
		src, dst := d.Pair()
		if src == dst || !cs.Contains(src) || !cs.Contains(dst) {
			continue
		}
		last := *d.Last
		observed.Set(src, dst, 1/last)
		observed.Set(dst, src, last)
	}
	return observed, true, nil
}

func (s SummaryState) validate() error {
	if len(s.Deltas) == 0 {
		return invalid("no deltas")
	}
	for i, d := range s.Deltas {
		if !marketName.MatchString(d.MarketName) {
			return invalid("delta %d: bad market name %q", i, d.MarketName)
		}
		if d.Last == nil || !(*d.Last > 0) {
			return invalid("delta %d: %s: last must be positive", i, d.MarketName)
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return &rates.ValidationError{Source: Source, Reason: fmt.Sprintf(format, args...)}
}
