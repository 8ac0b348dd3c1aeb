package client

import (
	"encoding/json"
)

// Payload is a decoded serverinfo response. Tree holds the parsed document
// with numbers kept as json.Number; Body is the response verbatim.
type Payload struct {
	Tree map[string]any
	Body []byte
}

// Get walks Tree along path and returns the value found there, or nil when
// any step is missing or not an object.
func (p *Payload) Get(path ...string) any {
	if p == nil {
		return nil
	}
	var cur any = p.Tree
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}

// Object returns the object at path, or nil when absent or not an object.
func (p *Payload) Object(path ...string) map[string]any {
	m, _ := p.Get(path...).(map[string]any)
	return m
}

// Meta is the OCS envelope status block.
type Meta struct {
	Status     string
	StatusCode json.Number
	Message    string
}

// Meta extracts ocs.meta. Fields that are absent or of the wrong type are
// left empty.
func (p *Payload) Meta() Meta {
	var m Meta
	m.Status, _ = p.Get("ocs", "meta", "status").(string)
	m.StatusCode, _ = p.Get("ocs", "meta", "statuscode").(json.Number)
	m.Message, _ = p.Get("ocs", "meta", "message").(string)
	return m
}

// Data is the ocs.data object the normalizer reads from.
func (p *Payload) Data() map[string]any {
	return p.Object("ocs", "data")
}
