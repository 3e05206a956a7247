package cart

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Line is one entry of the in-progress cart as stored in the cache. The
// mapping key duplicates ProductID as a string; both are kept so existing
// entries keep parsing.
type Line struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

func lineKey(productID uint) string {
	return strconv.FormatUint(uint64(productID), 10)
}

func decodeLines(raw string) (map[string]Line, error) {
	lines := map[string]Line{}
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, fmt.Errorf("decode cart payload: %w", err)
	}
	return lines, nil
}

func encodeLines(lines map[string]Line) (string, error) {
	payload, err := json.Marshal(lines)
	if err != nil {
		return "", fmt.Errorf("encode cart payload: %w", err)
	}
	return string(payload), nil
}

// ParseLines decodes a serialized cart payload into its lines ordered by
// product id. Checkout consumes the cached payload through this.
func ParseLines(raw string) ([]Line, error) {
	lines, err := decodeLines(raw)
	if err != nil {
		return nil, err
	}
	return sortedLines(lines), nil
}

// sortedLines returns the cart lines ordered by product id for deterministic
// iteration.
func sortedLines(lines map[string]Line) []Line {
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		out = append(out, line)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
