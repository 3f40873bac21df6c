package settings

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sample() SiteSettings {
	return SiteSettings{
		Title:              "Chef Margaret Alvis",
		HeroImage:          "/uploads/hero.jpg",
		SignUpInstructions: "Join the list for first dibs on dinners.",
		AboutTitle:         "About Margaret",
		AboutContent:       "Paragraph one.\n\nParagraph two.",
		AboutImage:         "https://cdn.example.com/about.jpg",
		ContactTitle:       "Get in touch",
		ContactSubtitle:    "Private dinners and classes",
		Services: Services{
			PrivateDinnerDescription: "Seven courses at your table.",
			CookingClassDescription:  "Hands-on pasta nights.",
			CateringDescription:      "Events up to 80 guests.",
			ConsultationDescription:  "Menu design for restaurants.",
		},
		FooterText: "(c) Chef Margaret",
		SocialMedia: SocialMedia{
			Instagram: "https://instagram.com/chef.margaret",
			Facebook:  "https://facebook.com/chef.margaret",
			Twitter:   "",
		},
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	for _, s := range []SiteSettings{Defaults(), sample()} {
		data, err := Encode(s)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		got, version, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if version != CurrentVersion {
			t.Errorf("Expected version %d, got %d", CurrentVersion, version)
		}
		if diff := cmp.Diff(s, got); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestEncode_Envelope(t *testing.T) {
	data, err := Encode(Defaults())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	top, err := object(data)
	if err != nil {
		t.Fatalf("envelope is not an object: %v", err)
	}
	if string(top["version"]) != "1" {
		t.Errorf("Expected version 1, got %s", top["version"])
	}
	inner, err := object(top["settings"])
	if err != nil {
		t.Fatalf("settings is not an object: %v", err)
	}
	for _, key := range []string{"title", "services", "socialMedia", "footerText"} {
		if _, ok := inner[key]; !ok {
			t.Errorf("Expected key %q in encoded document", key)
		}
	}
}

func TestDecode_Lenient(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    func(*SiteSettings)
		version int
	}{
		{
			name: "empty object",
			data: `{}`,
			want: func(*SiteSettings) {},
		},
		{
			name: "bare partial document",
			data: `{"title":"Chef M"}`,
			want: func(s *SiteSettings) { s.Title = "Chef M" },
		},
		{
			name:    "envelope",
			data:    `{"version":1,"settings":{"title":"Chef M","services":{"cateringDescription":"Big events"}}}`,
			want:    func(s *SiteSettings) { s.Title = "Chef M"; s.Services.CateringDescription = "Big events" },
			version: 1,
		},
		{
			name: "mistyped leaves",
			data: `{"title":42,"footerText":true,"aboutTitle":["x"],"contactTitle":"ok"}`,
			want: func(s *SiteSettings) { s.ContactTitle = "ok" },
		},
		{
			name: "null leaves",
			data: `{"title":null,"heroImage":"/h.jpg"}`,
			want: func(s *SiteSettings) { s.HeroImage = "/h.jpg" },
		},
		{
			name: "nested object replaced by string",
			data: `{"services":"lots","socialMedia":{"facebook":"https://fb.com/x","twitter":7}}`,
			want: func(s *SiteSettings) { s.SocialMedia.Facebook = "https://fb.com/x" },
		},
		{
			name: "nested object null",
			data: `{"socialMedia":null,"title":"T"}`,
			want: func(s *SiteSettings) { s.Title = "T" },
		},
		{
			name: "unknown keys ignored",
			data: `{"title":"T","colour":"red","services":{"sushi":"yes"}}`,
			want: func(s *SiteSettings) { s.Title = "T" },
		},
		{
			name:    "newer envelope",
			data:    `{"version":3,"settings":{"footerText":"F"}}`,
			want:    func(s *SiteSettings) { s.FooterText = "F" },
			version: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, version, err := Decode([]byte(tt.data))
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			want := Defaults()
			tt.want(&want)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
			if version != tt.version {
				t.Errorf("Expected version %d, got %d", tt.version, version)
			}
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	for _, data := range []string{``, `null`, `"title"`, `[1,2]`, `42`, `{"title":`, `{"version":1,"settings":[]}`} {
		got, _, err := Decode([]byte(data))
		var malformed *MalformedSettingsError
		if !errors.As(err, &malformed) {
			t.Errorf("Decode(%q): expected MalformedSettingsError, got %v", data, err)
		}
		if diff := cmp.Diff(Defaults(), got); diff != "" {
			t.Errorf("Decode(%q) should return defaults (-want +got):\n%s", data, diff)
		}
	}
}
