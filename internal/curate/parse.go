package curate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/TobiSchelling/cyberbrief/internal/llm"
	"github.com/TobiSchelling/cyberbrief/internal/news"
)

// Reply is a validated model reply.
type Reply struct {
	IDs     []int
	Summary string
}

// ParseReply strictly decodes a model reply of the form
// {"articles": [ids], "summary": "..."}. Ids may be JSON integers or strings
// holding integers. Duplicate ids are collapsed, keeping the first
// occurrence. Any other shape is a *news.ResponseFormatError carrying raw.
func ParseReply(raw string) (*Reply, error) {
	fail := func(format string, args ...any) (*Reply, error) {
		return nil, &news.ResponseFormatError{Raw: raw, Reason: fmt.Sprintf(format, args...)}
	}

	text := llm.StripCodeFence(raw)
	if text == "" {
		return fail("empty reply")
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var obj map[string]json.RawMessage
	if err := dec.Decode(&obj); err != nil {
		return fail("invalid JSON: %v", err)
	}
	if obj == nil {
		return fail("reply is not a JSON object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return fail("unexpected content after the JSON object")
	}

	rawArticles, ok := obj["articles"]
	if !ok {
		return fail(`missing "articles"`)
	}
	rawSummary, ok := obj["summary"]
	if !ok {
		return fail(`missing "summary"`)
	}

	var summary *string
	if err := json.Unmarshal(rawSummary, &summary); err != nil || summary == nil {
		return fail(`"summary" must be a string`)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(rawArticles, &elems); err != nil || elems == nil {
		return fail(`"articles" must be an array`)
	}

	reply := &Reply{IDs: make([]int, 0, len(elems)), Summary: *summary}
	seen := make(map[int]bool, len(elems))
	for i, elem := range elems {
		id, err := parseID(elem)
		if err != nil {
			return fail("articles[%d]: %v", i, err)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		reply.IDs = append(reply.IDs, id)
	}
	return reply, nil
}

func parseID(elem json.RawMessage) (int, error) {
	dec := json.NewDecoder(bytes.NewReader(elem))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, err
	}

	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return 0, fmt.Errorf("id %s is not an integer", elem)
	}

	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("id %s is not an integer", elem)
	}
	return id, nil
}
