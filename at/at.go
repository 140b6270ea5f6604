package at

const (
	// Terminal Control
	CRLF   = "\r\n"
	LF     = "\n"
	Prompt = "> "
	CtrlZ  = byte(26) // ends an SMS body in text mode

	// Response Codes
	OK       = "OK"
	ERROR    = "ERROR"
	CmsError = "+CMS ERROR:"
	CmeError = "+CME ERROR:"

	// Commands
	CmdAt               = "AT"
	CmdEchoOn           = "ATE1"
	CmdEchoOff          = "ATE0"
	CmdModuleInfo       = "ATI"
	CmdSignalQuality    = "AT+CSQ"
	CmdBattery          = "AT+CBC"
	CmdCCID             = "AT+CCID"
	CmdRegistration     = "AT+CREG?"
	CmdOperator         = "AT+COPS?"
	CmdPhoneNumber      = "AT+CNUM"
	CmdFunctionality    = "AT+CFUN?"
	CmdSetFunctionality = "AT+CFUN=%d"
	CmdSleep            = "AT+CSCLK?"
	CmdSleepOff         = "AT+CSCLK=0"
	CmdSleepOn          = "AT+CSCLK=2"
	CmdPowerOff         = "AT+CPOWD=1"
	CmdSetTextMode      = "AT+CMGF=1"
	CmdSendSMS          = `AT+CMGS="%s"`

	// Final line of an accepted SMS, followed by the message reference
	SMSReference = "+CMGS:"
)

type ResponseType int

const (
	TypeNone    ResponseType = iota // blank lines, echo fragments, anything not terminal
	TypeOK                          // bare acknowledgement
	TypeError                       // ERROR
	TypePayload                     // data line that ends the exchange
	TypePrompt                      // SMS input prompt
)

func (t ResponseType) String() string {
	switch t {
	case TypeOK:
		return "ok"
	case TypeError:
		return "error"
	case TypePayload:
		return "payload"
	case TypePrompt:
		return "prompt"
	default:
		return "none"
	}
}
