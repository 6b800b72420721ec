package backend

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"vlmeval/pkg/types"
)

// modelEntry is one element of a model listing.
type modelEntry struct {
	ID string
	// HasMeta is true when the entry says anything about vision support.
	HasMeta bool
	Vision  bool
}

// parseModelList accepts OpenAI-style {"data":[...]} listings as well as
// {"models":[...]}. Entries may carry vision metadata in several shapes.
func parseModelList(body []byte) ([]modelEntry, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: model list is not valid JSON", errFormat)
	}
	list := gjson.GetBytes(body, "data")
	if !list.IsArray() {
		list = gjson.GetBytes(body, "models")
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: model list has no data array", errFormat)
	}
	var out []modelEntry
	for _, item := range list.Array() {
		e := modelEntry{ID: firstString(item, "id", "identifier", "modelKey", "name")}
		if e.ID == "" {
			continue
		}
		e.HasMeta, e.Vision = visionMeta(item)
		out = append(out, e)
	}
	return out, nil
}

func firstString(item gjson.Result, keys ...string) string {
	if item.Type == gjson.String {
		return item.String()
	}
	for _, k := range keys {
		if v := item.Get(k); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func visionMeta(item gjson.Result) (hasMeta, vision bool) {
	if t := item.Get("type"); t.Type == gjson.String {
		return true, strings.EqualFold(t.String(), "vlm")
	}
	if v := item.Get("vision"); v.IsBool() {
		return true, v.Bool()
	}
	caps := item.Get("capabilities")
	switch {
	case caps.IsArray():
		for _, c := range caps.Array() {
			if strings.EqualFold(c.String(), "vision") {
				return true, true
			}
		}
		return true, false
	case caps.IsObject():
		if v := caps.Get("vision"); v.IsBool() {
			return true, v.Bool()
		}
	}
	return false, false
}

// visionIDs keeps entries that are vision capable or say nothing either way.
func visionIDs(entries []modelEntry) []types.ModelIdentifier {
	out := make([]types.ModelIdentifier, 0, len(entries))
	for _, e := range entries {
		if e.HasMeta && !e.Vision {
			continue
		}
		out = append(out, e.ID)
	}
	return out
}
