package ingest

import "testing"

func TestNormalize_AbbreviationAndDateInteract(t *testing.T) {
	n := NewNormalizer([]string{"Jän."})
	got := n.Normalize("Die Frist ist der 20. Jän. 2024.")
	want := "Die Frist ist der 20 Jän 2024."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	n := NewNormalizer([]string{"z.B.", "Jän.", "bzw."})
	inputs := []string{
		"Die Frist ist der 20. Jän. 2024.",
		"Das gilt z.B. für Studierende, bzw. deren Vertreter.",
		"1. Absatz regelt den 2. Fall.",
		"Kein Datum und keine Abkürzung hier.",
	}
	for _, input := range inputs {
		once := n.Normalize(input)
		twice := n.Normalize(once)
		if once != twice {
			t.Fatalf("not idempotent for %q:\n once:  %q\n twice: %q", input, once, twice)
		}
	}
}

func TestNormalize_SentenceDotSurvives(t *testing.T) {
	n := NewNormalizer([]string{"z.B."})
	got := n.Normalize("Das ist ein Satz. Das ist noch einer.")
	if got != "Das ist ein Satz. Das ist noch einer." {
		t.Fatalf("sentence-terminating dots must survive, got %q", got)
	}
}

func TestNormalize_TrailingNumberDotKept(t *testing.T) {
	// Digit-dot at end of input has no following non-digit, so the
	// pattern cannot match and the (sentence-ending) dot stays.
	n := NewNormalizer(nil)
	got := n.Normalize("Gegründet 1994.")
	if got != "Gegründet 1994." {
		t.Fatalf("got %q", got)
	}
}

func TestNormalize_OrdinalMidSentence(t *testing.T) {
	n := NewNormalizer(nil)
	got := n.Normalize("Im 3. Stock befindet sich das Sekretariat.")
	want := "Im 3 Stock befindet sich das Sekretariat."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalize_EntriesWithoutDotIgnored(t *testing.T) {
	n := NewNormalizer([]string{"FHTW", "z.B."})
	got := n.Normalize("Die FHTW bietet z.B. Stipendien an.")
	want := "Die FHTW bietet zB Stipendien an."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalize_NoMatches(t *testing.T) {
	n := NewNormalizer([]string{"Jän."})
	input := "Hier passiert nichts"
	if got := n.Normalize(input); got != input {
		t.Fatalf("got %q, want unchanged input", got)
	}
}
