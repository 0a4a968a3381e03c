package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Leadflow/internal/domain"
)

// RuleSpec — правило в YAML файле.
//
//	rules:
//	  - status: new
//	    delay: 60
//	    text: "Still interested? Reply YES"
//	  - status: submitted
//	    delay: 1440
//	    text: "Finish your application"
//	    enabled: false
type RuleSpec struct {
	Status  string `yaml:"status"`
	Delay   int    `yaml:"delay"`
	Text    string `yaml:"text"`
	Enabled *bool  `yaml:"enabled"` // default: true
}

type rulesFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

// LoadRules читает правила follow-up из YAML файла.
func LoadRules(path string) ([]domain.FollowupRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// ParseRules разбирает и валидирует правила. Неизвестные поля — ошибка.
func ParseRules(data []byte) ([]domain.FollowupRule, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file rulesFile
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	rules := make([]domain.FollowupRule, 0, len(file.Rules))
	for i, spec := range file.Rules {
		status, err := domain.ParseLeadStatus(spec.Status)
		if err != nil {
			return nil, fmt.Errorf("rule #%d: %w", i+1, err)
		}

		enabled := true
		if spec.Enabled != nil {
			enabled = *spec.Enabled
		}

		rule, err := domain.NewFollowupRule(status, spec.Delay, spec.Text, enabled)
		if err != nil {
			return nil, fmt.Errorf("rule #%d: %w", i+1, err)
		}
		rules = append(rules, *rule)
	}
	return rules, nil
}
