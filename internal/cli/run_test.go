package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const generateRule = `sync GenerateShortNonce

when
    Web.request (method: "shortenUrl", targetUrl, shortUrlBase)

then
    NonceGenerator.generate ()
`

const registerRule = `sync RegisterShort

when
    Web.request (method: "shortenUrl", targetUrl, shortUrlBase)
    NonceGenerator.generate () : (nonce)

then
    UrlShortening.register (shortUrlSuffix: nonce, targetUrl, shortUrlBase)
`

const respondRule = `sync RespondShort

when
    Web.request (method: "shortenUrl") : (request: r)
    UrlShortening.register (targetUrl: t) : (shortUrl: u)

then
    Web.respond (request: r, shortUrl: u, targetUrl: t)
`

func writeShortenerRules(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "01-generate.weft", generateRule)
	writeFile(t, dir, "02-register.weft", registerRule)
	writeFile(t, dir, "03-respond.weft", respondRule)
	return dir
}

func TestRun_ShortenRequest(t *testing.T) {
	dir := writeShortenerRules(t)

	out, err := execute(t, "run", dir,
		"--request", `{"method":"shortenUrl","targetUrl":"https://example.com/a","shortUrlBase":"sho.rt"}`,
	)
	require.NoError(t, err)
	assert.Contains(t, out, `"sho.rt/`)
	assert.Contains(t, out, `"targetUrl":"https://example.com/a"`)
}

func TestRun_UnmatchedRequestEchoes(t *testing.T) {
	dir := writeShortenerRules(t)

	// No rule responds to this method, so the reply is the request
	// completion itself, correlation token included.
	out, err := execute(t, "run", dir, "--timeout", "50ms",
		"--request", `{"method":"stats"}`,
	)
	require.NoError(t, err)
	assert.Contains(t, out, `"request":`)
	assert.NotContains(t, out, "sho.rt/")
}

func TestRun_JSONEnvelope(t *testing.T) {
	dir := writeShortenerRules(t)

	out, err := execute(t, "--format", "json", "run", dir,
		"--request", `{"method":"shortenUrl","targetUrl":"https://example.com/a","shortUrlBase":"sho.rt"}`,
	)
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "ok"`)
	assert.Contains(t, out, "sho.rt/")
}

func TestRun_BadRequestJSON(t *testing.T) {
	dir := writeShortenerRules(t)

	_, err := execute(t, "run", dir, "--request", "{not json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_MissingRules(t *testing.T) {
	_, err := execute(t, "run", filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_InvalidRuleFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.weft", "when\n    A.go (v: x)\nthen\n    B.go (v: x)\n")

	_, err := execute(t, "run", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
