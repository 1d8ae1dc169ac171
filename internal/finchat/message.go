package finchat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// BuildCOTMessage constructs the V1 string-encoded COT invocation:
//
//	cot {slug} $key1:value1 $key2:value2 ...
//
// Parameters are emitted in slice order; the gateway's message parser is
// order-sensitive, so callers must append them in the mandated order
// (purpose before patterns before text).
func BuildCOTMessage(slug string, params []Param) string {
	var b strings.Builder
	b.WriteString("cot ")
	b.WriteString(slug)
	for _, p := range params {
		fmt.Fprintf(&b, " $%s:%s", p.Key, p.Value)
	}
	return b.String()
}

// encodeOrderedJSON marshals params as a JSON object whose keys appear
// in slice order. A plain map would lose the ordering the V2 endpoint
// expects (extra parameters before the text parameter).
func encodeOrderedJSON(params []Param) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range params {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
