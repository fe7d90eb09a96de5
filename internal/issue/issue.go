// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

const (
	ModuleFetchFailedId Id = iota + 1
	ConfigLoadFailedId
	ManifestNotFoundId
	ManifestParseErrorId
	ScriptExecutionFailedId
	InvalidDependencyId
	InvalidModuleId
	SandboxUnavailableId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	Issue struct {
		id       Id          // ID used to lookup the issue
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		docLinks []HttpLink
		extLinks []HttpLink // external links that might be useful for the user
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue's Markdown with glamour using the given style
// ("dark", "light", "auto" or a path to a JSON style).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range append(i.DocLinks(), i.extLinks...) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	moduleFetchFailedIssue = &Issue{
		id: ModuleFetchFailedId,
		mdMsg: `
# Failed to fetch module sources!

One of the module's source URLs could not be retrieved. No script of the
module was executed.

## Things you can try:
- Open the failing URL in a browser or with curl:
~~~
$ curl -fsSL <url>
~~~

- Check that the server answers with a 2xx status
- Raise the request timeout or size limit in your config:
~~~cue
fetch: {
	timeout: "60s"
	max_source_bytes: 33554432
}
~~~

- For ` + "`file://`" + ` URLs, use an absolute path to a regular file`,
		extLinks: []HttpLink{"https://developer.mozilla.org/en-US/docs/Web/HTTP/Status"},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The starkmod configuration file could not be read or contains errors.

## Things you can try:
- Show where starkmod looks for its config:
~~~
$ starkmod config path
~~~

- Recreate a default configuration:
~~~
$ starkmod config init --force
~~~

- Check the CUE syntax of your file:
~~~
$ cue vet ~/.config/starkmod/config.cue
~~~`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# Manifest not found!

The manifest file you passed does not exist or is not readable.

## Things you can try:
- Check the path for typos
- Create a manifest listing your modules:
~~~toml
[[module]]
name = "libA"
url = ["${CDN}/lib-a/runtime.js", "${CDN}/lib-a/index.js"]
~~~`,
	}

	manifestParseErrorIssue = &Issue{
		id: ManifestParseErrorId,
		mdMsg: `
# Failed to parse manifest!

The manifest is not valid TOML or describes an invalid module.

## Common issues:
- Unknown keys (only ` + "`name`, `url`, `sandbox` and `deps`" + ` are allowed)
- Duplicate module names
- Relative URLs or unsupported schemes (use http, https or file)
- ` + "`${VAR}`" + ` references to unset environment variables

## Things you can try:
- Validate the manifest without running anything:
~~~
$ starkmod manifest check modules.toml
~~~`,
		extLinks: []HttpLink{"https://toml.io/en/v1.0.0"},
	}

	scriptExecutionFailedIssue = &Issue{
		id: ScriptExecutionFailedId,
		mdMsg: `
# Script execution failed!

A module script threw an error. The remaining scripts of the module were
skipped and the export was resolved from what had already run.

## Things you can try:
- Run with verbose output to see the script name and the JavaScript error:
~~~
$ starkmod --verbose run <name> <url>...
~~~

- Check whether the script expects browser APIs that are not available
- Provide missing globals as dependencies:
~~~
$ starkmod run <name> <url> --dep React='{}'
~~~`,
	}

	invalidDependencyIssue = &Issue{
		id: InvalidDependencyId,
		mdMsg: `
# Invalid dependency!

A ` + "`--dep`" + ` flag or manifest dependency could not be used.

## Things you can try:
- Use the form ` + "`key=json`" + `, for example ` + "`--dep retries=3`" + ` or ` + "`--dep cfg='{\"a\":1}'`" + `
- Do not override the reserved globals ` + "`window`, `self`, `globalThis` and `console`",
	}

	invalidModuleIssue = &Issue{
		id: InvalidModuleId,
		mdMsg: `
# Invalid module!

The module name or one of its URLs is invalid.

## Things you can try:
- Give the module a non-empty name
- Use absolute ` + "`http://`, `https://` or `file://`" + ` URLs`,
	}

	sandboxUnavailableIssue = &Issue{
		id: SandboxUnavailableId,
		mdMsg: `
# Sandbox unavailable!

An isolated namespace could not be created for the module.

## Things you can try:
- Check the module's dependencies for reserved names
- Run without isolation:
~~~
$ starkmod run --no-sandbox <name> <url>...
~~~`,
	}

	issues = map[Id]*Issue{
		moduleFetchFailedIssue.Id():     moduleFetchFailedIssue,
		configLoadFailedIssue.Id():      configLoadFailedIssue,
		manifestNotFoundIssue.Id():      manifestNotFoundIssue,
		manifestParseErrorIssue.Id():    manifestParseErrorIssue,
		scriptExecutionFailedIssue.Id(): scriptExecutionFailedIssue,
		invalidDependencyIssue.Id():     invalidDependencyIssue,
		invalidModuleIssue.Id():         invalidModuleIssue,
		sandboxUnavailableIssue.Id():    sandboxUnavailableIssue,
	}
)

// Values returns every known issue ordered by ID.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
