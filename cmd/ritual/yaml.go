package main

import (
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/ncbray/ritual"
)

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

// valueNode converts a parse result to a YAML document.  Nodes become
// mappings tagged with their type name, positional fields are keyed
// by index.
func valueNode(v any) *yaml.Node {
	switch v := v.(type) {
	case nil:
		return scalar("!!null", "null")
	case string:
		return scalar("!!str", v)
	case rune:
		return scalar("!!str", string(v))
	case int:
		return scalar("!!int", strconv.Itoa(v))
	case bool:
		return scalar("!!bool", strconv.FormatBool(v))
	case *ritual.List:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range v.Items {
			n.Content = append(n.Content, valueNode(item))
		}
		return n
	case *ritual.Node:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!" + v.Type}
		for i, field := range v.Fields {
			key := field.Name
			if key == "" {
				key = strconv.Itoa(i)
			}
			n.Content = append(n.Content, scalar("!!str", key), valueNode(field.Value))
		}
		return n
	case ritual.Callable:
		return scalar("!!str", v.CallableName())
	default:
		return scalar("!!str", fmt.Sprint(v))
	}
}
