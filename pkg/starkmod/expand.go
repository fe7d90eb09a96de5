// SPDX-License-Identifier: MPL-2.0

package starkmod

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"
)

// ExpandURL expands shell-style parameter references ($VAR, ${VAR}, ${VAR:-default})
// in raw using getenv. Unset variables expand to the empty string. Command
// substitution and other constructs that would run code are rejected.
func ExpandURL(raw string, getenv func(string) string) (string, error) {
	if !strings.ContainsAny(raw, "$`") {
		return raw, nil
	}

	word, err := syntax.NewParser().Document(strings.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}

	cfg := &expand.Config{Env: expand.FuncEnviron(getenv)}
	out, err := expand.Document(cfg, word)
	if err != nil {
		return "", fmt.Errorf("expand url %q: %w", raw, err)
	}
	return out, nil
}
