package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsSetKeepsPosition(t *testing.T) {
	f := NewRequest(CmdAuth)
	f.Set(KeyLogin, "a")
	f.Set(KeyPassword, "b")
	f.Set(KeyLogin, "c")

	assert.Equal(t, []string{KeyCmd, KeyLogin, KeyPassword}, f.Keys())
	assert.Equal(t, "c", f.Value(KeyLogin))
}

func TestFieldsAddDoesNotOverride(t *testing.T) {
	f := NewRequest(CmdAuth)
	assert.True(t, f.Add(KeyLogin, "a"))
	assert.False(t, f.Add(KeyLogin, "b"))
	assert.Equal(t, "a", f.Value(KeyLogin))
}

func TestFieldsCloneIsIndependent(t *testing.T) {
	f := GetMessageUnmodified("tok")
	c := f.Clone()
	c.Set(KeySessionToken, "other")

	assert.Equal(t, "tok", f.Value(KeySessionToken))
	assert.True(t, c.IsFlag(KeyDoNotTranslate))
}

func TestFieldsNilIsEmpty(t *testing.T) {
	var f *Fields
	_, ok := f.Cmd()
	assert.False(t, ok)
	assert.Zero(t, f.Len())
	assert.Nil(t, f.Keys())
}

func TestFormat(t *testing.T) {
	line, err := Reply(CmdAuth, StatusOK).Format()
	require.NoError(t, err)
	assert.Equal(t, `AUTH --statusdesc='OK'`, line)

	line, err = GetMessageUnmodified("tok").Format()
	require.NoError(t, err)
	assert.Equal(t, `GETMSG --sessiontoken='tok' --donottranslate`, line)
}

func TestFormatErrors(t *testing.T) {
	_, err := NewFields().Format()
	assert.ErrorIs(t, err, ErrMissingCommand)

	_, err = NewRequest("TWO WORDS").Format()
	assert.ErrorIs(t, err, ErrInvalidCommand)

	bad := NewRequest(CmdHello)
	bad.Set("has space", "x")
	_, err = bad.Format()
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestLanguageCode(t *testing.T) {
	tests := map[string]string{
		"English":        LangEnglish,
		"Romanian":       LangRomanian,
		"Russian":        LangRussian,
		"Auto Detection": LangUnknown,
		"German":         "German",
		"":               "",
	}
	for in, want := range tests {
		got := LanguageCode(in)
		assert.Equal(t, want, got, "LanguageCode(%q)", in)
		assert.Equal(t, got, LanguageCode(got), "mapping must be idempotent for %q", in)
	}
}
