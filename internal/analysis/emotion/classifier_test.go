package emotion

import "testing"

func TestClassifyKeywords(t *testing.T) {
	cases := []struct {
		text string
		want Tag
	}{
		{text: "I am so happy today", want: Happy},
		{text: "This is AWESOME", want: Happy},
		{text: "i feel lonely", want: Sad},
		{text: "I'm furious right now", want: Angry},
		{text: "I don't know what to do", want: Confused},
		{text: "hello", want: Greeting},
		{text: "Good morning!", want: Happy},
		{text: "howdy partner", want: Greeting},
		{text: "what is the capital of peru", want: Neutral},
		{text: "", want: Neutral},
	}

	for _, tc := range cases {
		if got := Classify(tc.text); got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	// sad outranks angry, happy outranks everything
	if got := Classify("i am mad and sad"); got != Sad {
		t.Fatalf("expected sad to win over angry, got %s", got)
	}
	if got := Classify("hello, I'm confused but excited"); got != Happy {
		t.Fatalf("expected happy to win, got %s", got)
	}
	if got := Classify("hey, I'm lost"); got != Confused {
		t.Fatalf("expected confused to win over greeting, got %s", got)
	}
}

func TestClassifyGreetingWithoutHigherPriorityKeyword(t *testing.T) {
	for _, greeting := range []string{"hello", "hey", "howdy", "evening"} {
		for _, suffix := range []string{"", " there", " you", " friend"} {
			text := greeting + suffix
			if got := Classify(text); got != Greeting {
				t.Errorf("Classify(%q) = %s, want greeting", text, got)
			}
		}
	}
}

func TestClassifyNoKeywordsIsNeutral(t *testing.T) {
	inputs := []string{"what time is it", "tell me a joke", "12345", "\x00\x01", "🍕🍕"}
	for _, in := range inputs {
		if got := Classify(in); got != Neutral {
			t.Errorf("Classify(%q) = %s, want neutral", in, got)
		}
	}
}

func TestRulesReturnsCopy(t *testing.T) {
	table := Rules()
	table[0].Keywords[0] = "mutated"
	if Classify("happy") != Happy {
		t.Fatal("mutating Rules() result must not affect classification")
	}
	if len(table) != 5 || table[4].Tag != Greeting {
		t.Fatalf("unexpected rule order: %+v", table)
	}
}
