package proto

// Hello builds the handshake request.
func Hello() *Fields {
	return NewRequest(CmdHello)
}

// Auth builds an authentication request.
func Auth(login, password string) *Fields {
	f := NewRequest(CmdAuth)
	f.Set(KeyLogin, login)
	f.Set(KeyPassword, password)
	return f
}

// Register builds an account registration request.
func Register(login, password, name string) *Fields {
	f := NewRequest(CmdRegister)
	f.Set(KeyLogin, login)
	f.Set(KeyPassword, password)
	f.Set(KeyName, name)
	return f
}

// Translate builds a translation request. Languages are expected as wire codes.
func Translate(text, sourceLang, targetLang string) *Fields {
	f := NewRequest(CmdTranslate)
	f.Set(KeySourceText, text)
	f.Set(KeySourceLang, sourceLang)
	f.Set(KeyTargetLang, targetLang)
	return f
}

// SendMessage builds a request delivering msg to the recipient login.
func SendMessage(recipient, msg, lang, sessionToken string) *Fields {
	f := NewRequest(CmdSendMessage)
	f.Set(KeyRecipient, recipient)
	f.Set(KeyMessage, msg)
	f.Set(KeySourceLang, lang)
	f.Set(KeySessionToken, sessionToken)
	return f
}

// GetMessageUnmodified asks for the next message as it was sent.
func GetMessageUnmodified(sessionToken string) *Fields {
	f := NewRequest(CmdGetMessage)
	f.Set(KeySessionToken, sessionToken)
	f.SetFlag(KeyDoNotTranslate)
	return f
}

// GetMessageTranslated asks for the next message translated into lang.
func GetMessageTranslated(sessionToken, lang string) *Fields {
	f := NewRequest(CmdGetMessage)
	f.Set(KeySessionToken, sessionToken)
	f.Set(KeyTranslateTo, lang)
	return f
}

// Reply starts a response for cmd with the given status description.
func Reply(cmd, status string) *Fields {
	f := NewRequest(cmd)
	f.Set(KeyStatusDesc, status)
	return f
}
