package fulfill

import "testing"

func TestParseTag(t *testing.T) {
	cases := []struct {
		description string
		want        string
		ok          bool
	}{
		{description: "Telegram account tg:ID7 x1", want: "ID7", ok: true},
		{description: "TG: us12", want: "US12", ok: true},
		{description: "no tag here", ok: false},
		{description: "tg:", ok: false},
	}

	for _, tc := range cases {
		got, ok := ParseTag(tc.description)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("parse %q: expected (%q, %v), got (%q, %v)", tc.description, tc.want, tc.ok, got, ok)
		}
	}
}

func TestResolveTargetFirstPrefixWins(t *testing.T) {
	settings := Settings{
		Regions: []Region{
			{Code: "I", MinPrice: dec("1"), MaxPrice: dec("10")},
			{Code: "ID", MinPrice: dec("50"), MaxPrice: dec("200")},
		},
		Origins: []string{"personal", "autoreg"},
	}

	target, ok := ResolveTarget(settings, "tg:ID7")
	if !ok {
		t.Fatalf("expected target")
	}
	if target.Region != "I" {
		t.Fatalf("expected first matching region I, got %s", target.Region)
	}
	if !target.MaxPrice.Equal(dec("10")) {
		t.Fatalf("unexpected max price %s", target.MaxPrice)
	}

	target.Origins[0] = "stealer"
	if settings.Origins[0] != "personal" {
		t.Fatalf("target origins must not alias settings")
	}
}

func TestResolveTargetNoRegion(t *testing.T) {
	settings := Settings{Regions: []Region{{Code: "US", MinPrice: dec("1"), MaxPrice: dec("2")}}}

	target, ok := ResolveTarget(settings, "tg:ID7")
	if ok {
		t.Fatalf("expected no region match")
	}
	if target.Tag != "ID7" {
		t.Fatalf("expected tag to be reported, got %q", target.Tag)
	}
	if _, ok := ResolveTarget(settings, "plain order"); ok {
		t.Fatalf("expected no target without a tag")
	}
}

func TestRenderTemplate(t *testing.T) {
	got := RenderTemplate("code {code} for {order_id} at {order_link} {unknown}", map[string]string{
		"code":       "12345",
		"order_id":   "501",
		"order_link": "https://example.test/501/",
	})
	want := "code 12345 for 501 at https://example.test/501/ {unknown}"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if got := RenderTemplate("plain", nil); got != "plain" {
		t.Fatalf("expected template unchanged, got %q", got)
	}
}
