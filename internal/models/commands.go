package models

import "sort"

// Command identifies the kind of an envelope. The set is closed: anything
// not listed here is ignored by receivers.
type Command string

// Requests sent by the UI to its host
const (
	CmdReady               Command = "ready"
	CmdInitialized         Command = "initialized"
	CmdNewMessage          Command = "new_message"
	CmdFetchFiles          Command = "fetch_files"
	CmdFetchFileContent    Command = "fetch_file_content"
	CmdSyncProject         Command = "sync_project"
	CmdFastApply           Command = "fast_apply"
	CmdFastApplyAccept     Command = "fast_apply_accept"
	CmdFastApplyReject     Command = "fast_apply_reject"
	CmdOpenExternalURL     Command = "open_external_url"
	CmdCreateAuthLink      Command = "create_auth_link"
	CmdGetUserInfo         Command = "get_user_info"
	CmdGetUserSubscription Command = "get_user_subscription"
	CmdFigmaAttach         Command = "figma_attach"
	CmdLogout              Command = "logout"
)

// Responses and pushes sent by the host to the UI
const (
	CmdShowLoginView     Command = "show_login_view"
	CmdShowChatView      Command = "show_chat_view"
	CmdSyncProgress      Command = "sync_progress"
	CmdMessageTextDelta  Command = "message_text_delta"
	CmdFocusChatInput    Command = "focus_chat_input"
	CmdFigmaOAuthConnect Command = "figma_oauth_connect"
)

// Direction says which side of the channel may originate a command
type Direction int

const (
	// ToHost marks commands the UI sends
	ToHost Direction = 1 << iota
	// ToUI marks commands the host sends
	ToUI
)

var vocabulary = map[Command]Direction{
	CmdReady:               ToHost,
	CmdInitialized:         ToHost,
	CmdNewMessage:          ToHost | ToUI,
	CmdFetchFiles:          ToHost | ToUI,
	CmdFetchFileContent:    ToHost | ToUI,
	CmdSyncProject:         ToHost | ToUI,
	CmdFastApply:           ToHost | ToUI,
	CmdFastApplyAccept:     ToHost,
	CmdFastApplyReject:     ToHost,
	CmdOpenExternalURL:     ToHost,
	CmdCreateAuthLink:      ToHost | ToUI,
	CmdGetUserInfo:         ToHost | ToUI,
	CmdGetUserSubscription: ToHost | ToUI,
	CmdFigmaAttach:         ToHost | ToUI,
	CmdLogout:              ToHost,

	CmdShowLoginView:     ToUI,
	CmdShowChatView:      ToUI,
	CmdSyncProgress:      ToUI,
	CmdMessageTextDelta:  ToUI,
	CmdFocusChatInput:    ToUI,
	CmdFigmaOAuthConnect: ToUI,
}

// Known returns true if the command belongs to the vocabulary
func (c Command) Known() bool {
	_, ok := vocabulary[c]
	return ok
}

// IsRequest returns true if the UI may send this command
func (c Command) IsRequest() bool {
	return vocabulary[c]&ToHost != 0
}

// IsResponse returns true if the host may send this command
func (c Command) IsResponse() bool {
	return vocabulary[c]&ToUI != 0
}

// String returns the wire name
func (c Command) String() string {
	return string(c)
}

// Commands returns every command allowed in the given direction
func Commands(d Direction) []Command {
	var out []Command
	for cmd, dir := range vocabulary {
		if dir&d != 0 {
			out = append(out, cmd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
