package document

import (
	"errors"
	"fmt"
	"strings"
)

// DocumentError reports every structural rule a document failed, not just the
// first, so rejections can be audited with the full picture.
type DocumentError struct {
	Kind  Kind
	Rules []string
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document %s failed rules: %s", e.Kind, strings.Join(e.Rules, ", "))
}

// Is matches any DocumentError regardless of the failed rules.
func (e *DocumentError) Is(target error) bool {
	var de *DocumentError
	return errors.As(target, &de)
}

// ruleCollector accumulates failed rule names during ApplyRules.
type ruleCollector struct {
	kind  Kind
	rules []string
}

func (c *ruleCollector) fail(rule string) {
	c.rules = append(c.rules, rule)
}

// err returns nil when no rule failed.
func (c *ruleCollector) err() error {
	if len(c.rules) == 0 {
		return nil
	}
	return &DocumentError{Kind: c.kind, Rules: c.rules}
}
