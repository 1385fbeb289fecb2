package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/internal/ir"
	"github.com/weftlabs/weft/internal/parser"
)

func vetManifests(t *testing.T) []*Manifest {
	t.Helper()
	manifests, err := CompileSource(`
concept: Web: {
	purpose: "request gateway"
	action: request: args: {
		method:       string
		targetUrl:    string
		shortUrlBase: string
	}
	action: respond: args: request: string
}
concept: NonceGenerator: {
	purpose: "mint unique strings"
	action: generate: {}
}
concept: UrlShortening: {
	purpose: "map short urls to targets"
	action: register: args: {
		shortUrlSuffix: string
		shortUrlBase:   string
		targetUrl:      string
	}
	query: lookup: args: shortUrl: string
}
`)
	require.NoError(t, err)
	return manifests
}

func TestVet_ConsistentRulesPass(t *testing.T) {
	rule := parser.Parse(`
sync RegisterShort
when
    Web.request(method: "shortenUrl", targetUrl, shortUrlBase)
    NonceGenerator.generate(): (nonce)
where
    UrlShortening._lookup(shortUrl: targetUrl): (found)
then
    UrlShortening.register(shortUrlSuffix: nonce, targetUrl, shortUrlBase)
`)

	problems := Vet(vetManifests(t), []*ir.Rule{rule})
	assert.Empty(t, problems)
}

func TestVet_Findings(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		message string
	}{
		{
			name: "unknown concept",
			src: `
sync Ghost
when
    Phantom.appear()
then
    Web.respond(request: r)
`,
			message: "concept is not declared in any manifest",
		},
		{
			name: "undeclared action",
			src: `
sync BadOp
when
    Web.request(method: "x")
then
    Web.redirect(request: r)
`,
			message: "operation is not a declared action",
		},
		{
			name: "undeclared query",
			src: `
sync BadQuery
when
    Web.request(method: "x")
where
    UrlShortening._expand(shortUrl: u): (target)
then
    Web.respond(request: r)
`,
			message: "operation is not a declared query",
		},
		{
			name: "undeclared field",
			src: `
sync BadField
when
    Web.request(color: "red")
then
    Web.respond(request: r)
`,
			message: `field "color" is not a declared argument`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := parser.Parse(tt.src)
			problems := Vet(vetManifests(t), []*ir.Rule{rule})
			require.NotEmpty(t, problems)

			found := false
			for _, p := range problems {
				if p.Message == tt.message {
					found = true
				}
			}
			assert.True(t, found, "expected %q among %v", tt.message, problems)
		})
	}
}

func TestVet_ProblemString(t *testing.T) {
	p := Problem{Rule: "R", Concept: "Web", Op: "request", Message: "nope"}
	assert.Equal(t, `rule "R": Web.request: nope`, p.String())

	p = Problem{Rule: "R", Message: "nope"}
	assert.Equal(t, `rule "R": nope`, p.String())
}
