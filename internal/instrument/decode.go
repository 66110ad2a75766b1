package instrument

import (
	"math"

	"github.com/tidwall/gjson"
)

// parseObject checks that raw is a JSON object and returns it.
func parseObject(raw []byte) (gjson.Result, error) {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return gjson.Result{}, invalid("inputs", "must be a JSON object")
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return gjson.Result{}, invalid("inputs", "must be a JSON object")
	}
	return doc, nil
}

// number reads a non-negative numeric field. Missing optional fields read as 0.
func number(doc gjson.Result, path string, required bool) (float64, error) {
	v := doc.Get(path)
	if !v.Exists() || v.Type == gjson.Null {
		if required {
			return 0, invalid(path, "is required")
		}
		return 0, nil
	}
	if v.Type != gjson.Number {
		return 0, invalid(path, "must be numeric")
	}
	f := v.Float()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, invalid(path, "must be finite")
	}
	if f < 0 {
		return 0, invalid(path, "must not be negative")
	}
	return f, nil
}

// count is number restricted to whole values.
func count(doc gjson.Result, path string, required bool) (float64, error) {
	f, err := number(doc, path, required)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, invalid(path, "must be a whole count")
	}
	return f, nil
}

// numbers reads a fixed-length array of non-negative numbers.
func numbers(doc gjson.Result, path string, want int, whole bool) ([]float64, error) {
	v := doc.Get(path)
	if !v.Exists() {
		return nil, invalid(path, "is required")
	}
	if !v.IsArray() {
		return nil, invalid(path, "must be an array")
	}
	items := v.Array()
	if len(items) != want {
		return nil, invalid(path, "must have exactly %d values, got %d", want, len(items))
	}
	out := make([]float64, len(items))
	for i, it := range items {
		if it.Type != gjson.Number {
			return nil, invalid(path, "value %d must be numeric", i)
		}
		f := it.Float()
		if f < 0 {
			return nil, invalid(path, "value %d must not be negative", i)
		}
		if whole && f != math.Trunc(f) {
			return nil, invalid(path, "value %d must be a whole count", i)
		}
		out[i] = f
	}
	return out, nil
}

// countsAt reads a correct/errors/omissions triple under prefix ("" for the
// document root).
func countsAt(doc gjson.Result, prefix string) (Counts, error) {
	p := func(f string) string {
		if prefix == "" {
			return f
		}
		return prefix + "." + f
	}
	if prefix != "" {
		obj := doc.Get(prefix)
		if !obj.Exists() {
			return Counts{}, invalid(prefix, "is required")
		}
		if !obj.IsObject() {
			return Counts{}, invalid(prefix, "must be an object")
		}
	}
	var (
		c   Counts
		err error
	)
	if c.Correct, err = count(doc, p("correct"), true); err != nil {
		return Counts{}, err
	}
	if c.Errors, err = count(doc, p("errors"), true); err != nil {
		return Counts{}, err
	}
	if c.Omissions, err = count(doc, p("omissions"), true); err != nil {
		return Counts{}, err
	}
	return c, nil
}
