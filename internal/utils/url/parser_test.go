package urlutil

import "testing"

func TestValidate(t *testing.T) {
	valid := []string{
		"http://example.com",
		"https://example.com/path",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Fatalf("expected valid, got error: %v", err)
		}
	}

	invalid := []string{"ftp://example.com", "//example.com", "http:///", "not a url"}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Fatalf("expected invalid for %s", u)
		}
	}
}

func TestDecodeRedirect(t *testing.T) {
	cases := map[string]string{
		"https://l.facebook.com/l.php?u=https%3A%2F%2Fexample.com%2Fpage": "https://example.com/page",
		"https://example.com/page":                                     "https://example.com/page",
		"https://example.com/?q=1":                                     "https://example.com/?q=1",
		"%zz":                                                          "%zz",
		"":                                                             "",
	}
	for in, want := range cases {
		if got := DecodeRedirect(in); got != want {
			t.Errorf("DecodeRedirect(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSearchURL(t *testing.T) {
	got := SearchURL("https://www.facebook.com/", "BR", "saúde natural")
	want := "https://www.facebook.com/ads/library/?active_status=all&ad_type=all&country=BR&q=sa%C3%BAde+natural"
	if got != want {
		t.Errorf("SearchURL = %q, want %q", got, want)
	}
	if got := AdLibraryURL("https://fb.com", "123"); got != "https://fb.com/ads/library/?id=123" {
		t.Errorf("AdLibraryURL = %q", got)
	}
}
