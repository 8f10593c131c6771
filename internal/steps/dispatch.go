package steps

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/beentity/internal/fixture"
	"github.com/roach88/beentity/internal/ir"
)

var (
	ErrNoStepMatch   = errors.New("no step matches")
	ErrTableRequired = errors.New("step requires a table")
)

// Op names one of the four fixture operations.
type Op string

const (
	OpEnsureEntity   Op = "ensure_entity"
	OpEnsureEntities Op = "ensure_entities"
	OpEnsureNoEntity Op = "ensure_no_entity"
	OpAssertEntities Op = "assert_entities"
)

// Call is a parsed step: the operation and its arguments.
type Call struct {
	Op         Op
	Type       string
	Identifier string
	Fields     fixture.FieldSet
	Purge      bool
	Table      *Table
}

type binding struct {
	pattern *regexp.Regexp
	build   func(m map[string]string, table *Table) (Call, error)
}

// bindings are tried in order; more specific phrases come first.
var bindings = []binding{
	{
		pattern: regexp.MustCompile(`^a (?P<type>.+?) entity "(?P<identifier>[^"]+)" with (?P<field>.+?) "(?P<value>[^"]*)"$`),
		build: func(m map[string]string, _ *Table) (Call, error) {
			return Call{
				Op:         OpEnsureEntity,
				Type:       m["type"],
				Identifier: m["identifier"],
				Fields:     fixture.FieldSet{{Name: m["field"], Value: ir.IRString(m["value"])}},
			}, nil
		},
	},
	{
		pattern: regexp.MustCompile(`^an? (?P<type>.+?) entity "(?P<identifier>[^"]+)"$`),
		build: func(m map[string]string, _ *Table) (Call, error) {
			return Call{Op: OpEnsureEntity, Type: m["type"], Identifier: m["identifier"]}, nil
		},
	},
	{
		pattern: regexp.MustCompile(`^the following (?P<type>.+?) entities should exist:?$`),
		build: func(m map[string]string, table *Table) (Call, error) {
			return tableCall(OpAssertEntities, m["type"], false, table)
		},
	},
	{
		pattern: regexp.MustCompile(`^only the following (?P<type>.+?) entities:?$`),
		build: func(m map[string]string, table *Table) (Call, error) {
			return tableCall(OpEnsureEntities, m["type"], true, table)
		},
	},
	{
		pattern: regexp.MustCompile(`^the following (?P<type>.+?) entities:?$`),
		build: func(m map[string]string, table *Table) (Call, error) {
			return tableCall(OpEnsureEntities, m["type"], false, table)
		},
	},
	{
		pattern: regexp.MustCompile(`^no (?P<type>.+?) entity "(?P<identifier>[^"]+)"$`),
		build: func(m map[string]string, _ *Table) (Call, error) {
			return Call{Op: OpEnsureNoEntity, Type: m["type"], Identifier: m["identifier"]}, nil
		},
	},
	{
		pattern: regexp.MustCompile(`^there should not be an? "(?P<identifier>[^"]+)" (?P<type>.+?) entity$`),
		build: func(m map[string]string, _ *Table) (Call, error) {
			return Call{Op: OpEnsureNoEntity, Type: m["type"], Identifier: m["identifier"]}, nil
		},
	},
}

func tableCall(op Op, typeName string, purge bool, table *Table) (Call, error) {
	if table == nil {
		return Call{}, fmt.Errorf("%s %s: %w", op, typeName, ErrTableRequired)
	}
	return Call{Op: op, Type: typeName, Purge: purge, Table: table}, nil
}

// Parse matches step text against the bindings. A leading Given/When/Then/And/But
// keyword is ignored.
func Parse(text string, table *Table) (Call, error) {
	text = stripKeyword(strings.TrimSpace(text))
	for _, b := range bindings {
		match := b.pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		groups := make(map[string]string)
		for i, name := range b.pattern.SubexpNames() {
			if name != "" {
				groups[name] = match[i]
			}
		}
		return b.build(groups, table)
	}
	return Call{}, fmt.Errorf("%w: %q", ErrNoStepMatch, text)
}

func stripKeyword(text string) string {
	for _, kw := range []string{"Given ", "When ", "Then ", "And ", "But "} {
		if strings.HasPrefix(text, kw) {
			return strings.TrimSpace(text[len(kw):])
		}
	}
	return text
}

// Do runs a parsed call.
func (c *Context) Do(ctx context.Context, call Call) error {
	switch call.Op {
	case OpEnsureEntity:
		_, err := c.EnsureEntity(ctx, call.Type, call.Identifier, call.Fields)
		return err
	case OpEnsureEntities:
		_, err := c.EnsureEntities(ctx, call.Type, call.Table, call.Purge)
		return err
	case OpEnsureNoEntity:
		return c.EnsureNoEntity(ctx, call.Type, call.Identifier)
	case OpAssertEntities:
		return c.AssertEntities(ctx, call.Type, call.Table)
	default:
		return fmt.Errorf("unknown operation %q", call.Op)
	}
}

// Dispatch parses text and runs the matching operation.
// The parsed call is returned even when the operation fails.
func Dispatch(ctx context.Context, c *Context, text string, table *Table) (Call, error) {
	call, err := Parse(text, table)
	if err != nil {
		return call, err
	}
	return call, c.Do(ctx, call)
}
