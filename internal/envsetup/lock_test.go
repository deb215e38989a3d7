package envsetup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const compiledLock = `#
# This file is autogenerated by pip-compile with Python 3.12
#
--index-url https://pypi.org/simple

Flask==3.0.3 \
    --hash=sha256:34e815dfaa43340d1d15a5c3a02b8476004037eb4840b34910c6e21679d288f3
    # via -r requirements.in
itsdangerous==2.2.0
Jinja2==3.1.4
werkzeug==3.0.3
MarkupSafe==2.1.5
jinja2==3.1.4  # duplicate spelling
importlib-metadata==7.1.0 ; python_version < "3.10"
requests[security]==2.32.3
`

const normalizedLock = `--index-url https://pypi.org/simple
flask==3.0.3
importlib-metadata==7.1.0 ; python_version < "3.10"
itsdangerous==2.2.0
jinja2==3.1.4
markupsafe==2.1.5
requests==2.32.3
werkzeug==3.0.3
`

func TestCanonicalName(t *testing.T) {
	cases := map[string]string{
		"Flask":             "flask",
		"Zope.Interface":    "zope-interface",
		"typing_extensions": "typing-extensions",
		"A__b-.C":           "a-b-c",
		"  requests ":       "requests",
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalName(in), in)
	}
}

func TestNormalizeLock(t *testing.T) {
	out, err := NormalizeLock([]byte(compiledLock))
	require.NoError(t, err)
	require.Equal(t, normalizedLock, string(out))
}

func TestNormalizeLockIsDeterministic(t *testing.T) {
	lines := strings.Split(strings.TrimSpace(normalizedLock), "\n")
	reversed := make([]string, 0, len(lines))
	for i := len(lines) - 1; i >= 0; i-- {
		reversed = append(reversed, lines[i])
	}

	a, err := NormalizeLock([]byte(compiledLock))
	require.NoError(t, err)
	b, err := NormalizeLock([]byte(strings.Join(reversed, "\n")))
	require.NoError(t, err)
	require.Equal(t, a, b)

	again, err := NormalizeLock(a)
	require.NoError(t, err)
	require.Equal(t, a, again)
}

func TestParseLockRejectsUnpinned(t *testing.T) {
	for _, line := range []string{
		"requests>=2.0",
		"requests",
		"requests==2.*",
		"requests>=2,<3",
	} {
		_, err := ParseLock([]byte(line + "\n"))
		require.ErrorIs(t, err, ErrUnpinned, line)
	}
}

func TestParseLockRejectsEditableInstalls(t *testing.T) {
	for _, line := range []string{
		"-e ./vendor/mylib",
		"-e\t./vendor/mylib",
		"--editable ./vendor/mylib",
		"--editable=./vendor/mylib",
		"-e./vendor/mylib",
	} {
		_, err := ParseLock([]byte("flask==3.0.3\n" + line + "\n"))
		require.ErrorIs(t, err, ErrUnpinned, line)
		require.Contains(t, err.Error(), "line 2", line)
	}

	lock, err := ParseLock([]byte("--extra-index-url https://example.com/simple\nflask==3.0.3\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"--extra-index-url https://example.com/simple"}, lock.Options)
}

func TestParseLockRejectsConflicts(t *testing.T) {
	_, err := ParseLock([]byte("flask==3.0.3\nFlask==3.0.2\n"))
	require.ErrorIs(t, err, ErrConflict)
	require.Contains(t, err.Error(), "line 2")
}

func TestParseLockRejectsInvalidLines(t *testing.T) {
	_, err := ParseLock([]byte("==1.0\n"))
	require.ErrorIs(t, err, ErrInvalidRequirement)

	_, err = ParseLock([]byte("pkg[extra==1.0\n"))
	require.ErrorIs(t, err, ErrInvalidRequirement)
}

func TestParseLockDirectURLAndArbitraryEquality(t *testing.T) {
	lock, err := ParseLock([]byte("MyPkg @ https://example.com/mypkg-1.0.tar.gz\nlegacy===1.0-custom\n"))
	require.NoError(t, err)
	require.Len(t, lock.Entries, 2)

	assert.Equal(t, "legacy==1.0-custom", lock.Entries[0].String())
	assert.Equal(t, "mypkg @ https://example.com/mypkg-1.0.tar.gz", lock.Entries[1].String())

	got := lock.Lookup("MYPKG")
	require.Len(t, got, 1)
	assert.Equal(t, "https://example.com/mypkg-1.0.tar.gz", got[0].URL)
	assert.Empty(t, lock.Lookup("absent"))
}

func TestCheckClosure(t *testing.T) {
	lock, err := ParseLock([]byte(normalizedLock))
	require.NoError(t, err)

	manifest, err := ParseManifest([]byte(`-r base.in
Flask>=3  # web
requests[security]
tomli ; python_version < "3.11"
`))
	require.NoError(t, err)
	require.Len(t, manifest, 3)
	assert.Equal(t, []string{"security"}, manifest[1].Extras)
	require.NoError(t, CheckClosure(manifest, lock))

	missing, err := ParseManifest([]byte("flask\ngunicorn\nuvicorn\n"))
	require.NoError(t, err)
	err = CheckClosure(missing, lock)
	require.ErrorIs(t, err, ErrMissingRequirement)
	assert.Contains(t, err.Error(), "gunicorn, uvicorn")

	pinned, err := ParseManifest([]byte("flask==3.0.2\n"))
	require.NoError(t, err)
	require.ErrorIs(t, CheckClosure(pinned, lock), ErrConflict)
}
