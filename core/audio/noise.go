package audio

// ParticipantKind describes how a participant reached the room. Telephony
// participants arrive through a SIP bridge with narrowband, echo-prone audio
// and get a different cleaning profile than browser or native participants.
type ParticipantKind string

const (
	ParticipantKindSIP      ParticipantKind = "sip"
	ParticipantKindBrowser  ParticipantKind = "browser"
	ParticipantKindStandard ParticipantKind = "standard"
	ParticipantKindAgent    ParticipantKind = "agent"
)

// NoiseSuppressionProfile names the noise-cancellation pipeline applied to a
// participant's input stream. The concrete filter is an external collaborator;
// the engine only selects which one to attach.
type NoiseSuppressionProfile string

const (
	// ProfileTelephony is tuned for SIP trunks: narrowband speech, line hum
	// and far-end echo.
	ProfileTelephony NoiseSuppressionProfile = "bvc-telephony"
	// ProfileGeneral is the wideband default for browser and native clients.
	ProfileGeneral NoiseSuppressionProfile = "bvc"
)

// ProfileFor maps a participant kind to its noise-suppression profile. The
// selection is a pure function and is made once at join time; it never changes
// for the lifetime of the participant's session.
func ProfileFor(kind ParticipantKind) NoiseSuppressionProfile {
	switch kind {
	case ParticipantKindSIP:
		return ProfileTelephony
	default:
		return ProfileGeneral
	}
}
