package proto

// Field keys shared by requests and responses.
const (
	KeyCmd          = "cmd"
	KeyStatusCode   = "statuscode"
	KeyStatusDesc   = "statusdesc"
	KeyResult       = "resvalue"
	KeySessionToken = "sessiontoken"
	KeySenderID     = "senderid"
	KeySenderName   = "sendername"
	KeyMessage      = "msg"

	KeyLogin          = "login"
	KeyPassword       = "pass"
	KeyName           = "name"
	KeySourceText     = "sourcetext"
	KeySourceLang     = "sourcelang"
	KeyTargetLang     = "targetlang"
	KeyRecipient      = "to"
	KeyTranslateTo    = "translateto"
	KeyDoNotTranslate = "donottranslate"
)

// Status descriptions carried in KeyStatusDesc.
const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// CodeNotAuthenticated is the status code for requests that need a session but carry none.
const CodeNotAuthenticated = "NOT_AUTHENTICATED"

// Command names. The vocabulary is open; these are the ones the server ships with.
const (
	CmdHello                   = "HELLO"
	CmdAuth                    = "AUTH"
	CmdRegister                = "REGISTER"
	CmdTranslate               = "TRANSLATE"
	CmdSendMessage             = "SENDMSG"
	CmdGetMessage              = "GETMSG"
	CmdQuitServer              = "QUIT_SERVER"
	CmdCloseConnection         = "CLOSE_CONNECTION"
	CmdCloseConnectionAccepted = "CLOSE_CONNECTION_ACCEPTED"
	CmdServerHalted            = "SERVER_HALTED"
)

// Well-known endpoints and limits.
const (
	Localhost = "127.0.0.1"
	TCPPort   = 6418
	UDPPort   = 8146

	// FrameSize is the largest frame exchanged in one read (Ethernet MTU minus IP/UDP headers).
	FrameSize = 1472
)

// Transport types understood by the client worker.
const (
	TransportTCP = "tcp"
	TransportUDP = "udp"
)

// Language codes used on the wire.
const (
	LangEnglish  = "en"
	LangRomanian = "ro"
	LangRussian  = "ru"
	LangUnknown  = "unknown"
)

// ModeDoNotTranslate asks GETMSG for the message exactly as it was sent.
const ModeDoNotTranslate = "Do Not Translate"

// LanguageCode maps a human readable language name to its wire code.
// Unknown names, including codes that are already mapped, pass through unchanged.
func LanguageCode(name string) string {
	switch name {
	case "English":
		return LangEnglish
	case "Romanian":
		return LangRomanian
	case "Russian":
		return LangRussian
	case "Auto Detection":
		return LangUnknown
	default:
		return name
	}
}
