// Package utils holds small helpers shared by the model codecs.
package utils

import (
	"encoding/json"
	"fmt"
	"reflect"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// ParseStrategy records which decoder accepted a document.
type ParseStrategy string

const (
	StrategyJSON     ParseStrategy = "json"
	StrategyRepaired ParseStrategy = "json_repair"
	StrategyHjson    ParseStrategy = "hjson"
)

// RepairJSON fixes common hand-editing mistakes: single quotes, trailing
// commas, unquoted keys, comments and unclosed brackets.
func RepairJSON(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "", fmt.Errorf("json repair: %w", err)
	}
	return repaired, nil
}

// ParseHJSON converts an Hjson document to standard JSON.
func ParseHJSON(input string) (string, error) {
	var result interface{}
	if err := hjson.Unmarshal([]byte(input), &result); err != nil {
		return "", fmt.Errorf("hjson parse: %w", err)
	}
	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("hjson to json: %w", err)
	}
	return string(out), nil
}

// SmartParse decodes input into target trying, in order:
// 1. Standard JSON, as given and then with any outer code fence removed
// 2. Repaired JSON
// 3. Hjson (most lenient)
// The target's own UnmarshalJSON methods run in every case because the
// lenient forms are normalised to JSON first. Each attempt decodes into a
// fresh value, so target is only written by the attempt that succeeds.
func SmartParse(input string, target interface{}) (ParseStrategy, error) {
	err := decodeFresh([]byte(input), target)
	if err == nil {
		return StrategyJSON, nil
	}
	firstErr := err

	input = StripCodeFence(input)
	if err := decodeFresh([]byte(input), target); err == nil {
		return StrategyJSON, nil
	}

	if repaired, rerr := RepairJSON(input); rerr == nil {
		if err := decodeFresh([]byte(repaired), target); err == nil {
			return StrategyRepaired, nil
		}
	}

	if normalised, herr := ParseHJSON(input); herr == nil {
		if err := decodeFresh([]byte(normalised), target); err == nil {
			return StrategyHjson, nil
		}
	}

	return "", fmt.Errorf("no parser accepted the document: %w", firstErr)
}

// decodeFresh unmarshals into a new value of target's type and copies it
// over target on success.
func decodeFresh(data []byte, target interface{}) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return json.Unmarshal(data, target)
	}
	fresh := reflect.New(v.Elem().Type())
	if err := json.Unmarshal(data, fresh.Interface()); err != nil {
		return err
	}
	v.Elem().Set(fresh.Elem())
	return nil
}
