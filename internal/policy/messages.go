package policy

import "golang.org/x/text/language"

// MessageKey names a canned reply the orchestrator sends without the model.
type MessageKey int

const (
	MsgStoreUnavailable MessageKey = iota
	MsgIterationLimit
	MsgTimedOut
	MsgModelUnavailable
	MsgNeedsCredentials
	MsgBusy
	MsgEmptyReply
)

var messagesZH = map[MessageKey]string{
	MsgStoreUnavailable: "抱歉，目前無法存取帳本資料，請稍後再試。",
	MsgIterationLimit:   "抱歉，這個請求我無法完成，請換個方式描述或分成幾個步驟。",
	MsgTimedOut:         "抱歉，處理時間過長，請稍後再試一次。",
	MsgModelUnavailable: "抱歉，助理暫時無法回應，請稍後再試。",
	MsgNeedsCredentials: "API 金鑰無效或額度已用完，請提供新的 API 金鑰。",
	MsgBusy:             "上一則訊息還在處理中，請稍候。",
	MsgEmptyReply:       "我已處理完成，但沒有文字回應。",
}

var messagesEN = map[MessageKey]string{
	MsgStoreUnavailable: "Sorry, the ledger is unavailable right now. Please try again later.",
	MsgIterationLimit:   "Sorry, I could not complete that request. Try rephrasing it or splitting it into steps.",
	MsgTimedOut:         "Sorry, that took too long. Please try again.",
	MsgModelUnavailable: "Sorry, the assistant is temporarily unavailable. Please try again later.",
	MsgNeedsCredentials: "The API key is invalid or out of quota. Please provide a new API key.",
	MsgBusy:             "I am still working on your previous message.",
	MsgEmptyReply:       "Done, but I have no text reply.",
}

// Message returns the canned reply for key in the language lang.
// Chinese and undetermined languages get Traditional Chinese; everything
// else gets English.
func Message(lang language.Tag, key MessageKey) string {
	base, _ := lang.Base()
	if lang == language.Und || base.String() == "zh" {
		return messagesZH[key]
	}
	return messagesEN[key]
}
