package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"mistletoe/internal/assign"
	"mistletoe/internal/domain"
	"mistletoe/internal/engine"
)

func TestSetEnvValueReplacesAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("# local\nMISTLETOE_EXCHANGE=old\nOTHER=1"), 0o600))

	require.NoError(t, setEnvValue(path, "MISTLETOE_EXCHANGE", "family"))
	require.NoError(t, setEnvValue(path, "MISTLETOE_JWT_SECRET", "s"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "# local\nMISTLETOE_EXCHANGE=family\nOTHER=1\nMISTLETOE_JWT_SECRET=s\n", string(data))
}

func TestSetEnvValueCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, setEnvValue(path, "MISTLETOE_EXCHANGE", "office"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "MISTLETOE_EXCHANGE=office\n", string(data))
}

func TestReadNamesInputSources(t *testing.T) {
	file := filepath.Join(t.TempDir(), "names.txt")
	require.NoError(t, os.WriteFile(file, []byte("Ana, Ben\nCleo\n\nAna\n"), 0o600))

	names, err := readNamesInput(file, []string{"ignored", "args"}, strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, []string{"Ana", "Ben", "Cleo"}, names)

	names, err = readNamesInput("", []string{"Dan,Eve", "Fay"}, strings.NewReader("Zed"))
	require.NoError(t, err)
	require.Equal(t, []string{"Dan", "Eve", "Fay"}, names)

	names, err = readNamesInput("", nil, strings.NewReader("Gus\nHal\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"Gus", "Hal"}, names)

	_, err = readNamesInput("", []string{"Solo"}, nil)
	require.ErrorIs(t, err, engine.ErrTooFewNames)
}

func TestDecodeMatrixForms(t *testing.T) {
	want := assign.Matrix{{false, true}, {true, false}}

	m, err := decodeMatrix([]byte(`[[false,true],[true,false]]`))
	require.NoError(t, err)
	require.Equal(t, want, m)

	m, err = decodeMatrix([]byte(`{"matrix":[[false,true],[true,false]]}`))
	require.NoError(t, err)
	require.Equal(t, want, m)

	_, err = decodeMatrix([]byte(`{"rows":[]}`))
	require.Error(t, err)
	_, err = decodeMatrix([]byte(`nope`))
	require.Error(t, err)
}

func TestPrintMatrixMarksPairs(t *testing.T) {
	var buf bytes.Buffer
	view := engine.MatrixView{
		Names:  []string{"Ana", "Ben"},
		Matrix: assign.DefaultMatrix(2),
	}
	require.NoError(t, printMatrix(&buf, view))
	out := buf.String()
	require.Contains(t, out, "Ana")
	require.Contains(t, out, "✓")
	require.Contains(t, out, "·")
	require.Contains(t, out, "default matrix")
}

func TestPrintParticipants(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printParticipants(&buf, []domain.Participant{
		{Name: "Ana", Password: "jolly-otter", Target: "Ben"},
	}))
	require.Contains(t, buf.String(), "jolly-otter")
	require.Contains(t, buf.String(), "GIVES TO")
}
