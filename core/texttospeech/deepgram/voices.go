package deepgram

type Voice string

const (
	VoiceThalia    Voice = "aura-2-thalia-en"
	VoiceAndromeda Voice = "aura-2-andromeda-en"
	VoiceApollo    Voice = "aura-2-apollo-en"
	VoiceArcas     Voice = "aura-2-arcas-en"
	VoiceAsteria   Voice = "aura-2-asteria-en"
	VoiceHelena    Voice = "aura-2-helena-en"
	VoiceOrion     Voice = "aura-2-orion-en"

	defaultVoice = VoiceThalia
)

func GetAvailableVoices() []Voice {
	return []Voice{
		VoiceThalia,
		VoiceAndromeda,
		VoiceApollo,
		VoiceArcas,
		VoiceAsteria,
		VoiceHelena,
		VoiceOrion,
	}
}
