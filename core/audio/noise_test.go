package audio

import "testing"

func TestProfileForSelectsTelephonyForSIP(t *testing.T) {
	if got := ProfileFor(ParticipantKindSIP); got != ProfileTelephony {
		t.Fatalf("expected telephony profile for sip participant, got %q", got)
	}
}

func TestProfileForDefaultsToGeneral(t *testing.T) {
	for _, kind := range []ParticipantKind{
		ParticipantKindBrowser,
		ParticipantKindStandard,
		ParticipantKindAgent,
		ParticipantKind("unknown"),
	} {
		if got := ProfileFor(kind); got != ProfileGeneral {
			t.Fatalf("expected general profile for %q participant, got %q", kind, got)
		}
	}
}

func TestProfileForIsStable(t *testing.T) {
	first := ProfileFor(ParticipantKindSIP)
	for range 10 {
		if got := ProfileFor(ParticipantKindSIP); got != first {
			t.Fatalf("profile selection changed between calls: %q then %q", first, got)
		}
	}
}
