package mapservice

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// responseDocument holds the top level members of a json response in the order
// the service sent them, each value kept as the raw text received.
type responseDocument struct {
	keys   []string
	values map[string]json.RawMessage
}

func parseResponseDocument(body []byte) (*responseDocument, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))

	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("expected a json object")
	}

	document := &responseDocument{values: make(map[string]json.RawMessage)}
	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		key, ok := token.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", token)
		}

		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			return nil, err
		}
		if _, seen := document.values[key]; !seen {
			document.keys = append(document.keys, key)
		}
		document.values[key] = raw
	}

	if _, err := decoder.Token(); err != nil {
		return nil, err
	}
	if _, err := decoder.Token(); err == nil {
		return nil, errors.New("trailing data after json object")
	}

	return document, nil
}

// String returns the member named key when it is a json string
func (d *responseDocument) String(key string) (string, bool) {
	raw, ok := d.values[key]
	if !ok {
		return "", false
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", false
	}
	return text, true
}

func (d *responseDocument) Delete(key string) {
	if _, ok := d.values[key]; !ok {
		return
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

func (d *responseDocument) compact() []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, _ := json.Marshal(key)
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(d.values[key])
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

func (d *responseDocument) yamlNode() (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range d.keys {
		var value interface{}
		if err := json.Unmarshal(d.values[key], &value); err != nil {
			return nil, fmt.Errorf("member %s: %w", key, err)
		}

		valueNode := &yaml.Node{}
		if err := valueNode.Encode(value); err != nil {
			return nil, fmt.Errorf("member %s: %w", key, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			valueNode,
		)
	}
	return node, nil
}
