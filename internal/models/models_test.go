package models

import (
	"testing"
	"time"
)

func TestSession(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Valid", func(t *testing.T) {
		tt := []struct {
			name    string
			session func() *Session
			want    bool
		}{
			{
				name:    "no expiry",
				session: func() *Session { return NewSession(1, "tok", "", time.Time{}) },
				want:    true,
			},
			{
				name:    "future expiry",
				session: func() *Session { return NewSession(1, "tok", "", now.Add(time.Hour)) },
				want:    true,
			},
			{
				name:    "past expiry",
				session: func() *Session { return NewSession(1, "tok", "", now.Add(-time.Second)) },
				want:    false,
			},
			{
				name:    "expires exactly now",
				session: func() *Session { return NewSession(1, "tok", "", now) },
				want:    false,
			},
			{
				name: "deleted",
				session: func() *Session {
					s := NewSession(1, "tok", "", time.Time{})
					s.SetDeletedAt(&now)
					return s
				},
				want: false,
			},
			{
				name:    "empty token",
				session: func() *Session { return NewSession(1, "", "", time.Time{}) },
				want:    false,
			},
			{
				name:    "nil",
				session: func() *Session { return nil },
				want:    false,
			},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				if got := tc.session().Valid(now); got != tc.want {
					t.Errorf("Valid() = %v, want %v", got, tc.want)
				}
			})
		}
	})

	t.Run("Validate", func(t *testing.T) {
		s := NewSession(1, "tok", "", time.Time{})
		if err := s.Validate(); err == nil {
			t.Error("expected error without id")
		}

		s.SetID("abc")
		if err := s.Validate(); err != nil {
			t.Errorf("expected valid session, got %v", err)
		}

		s.SetAccessToken("")
		if err := s.Validate(); err == nil {
			t.Error("expected error without access token")
		}
	})

	t.Run("Label", func(t *testing.T) {
		s := NewSession(1, "tok", "", time.Time{})
		s.SetID("sess-1")
		if s.Label() != "sess-1" {
			t.Errorf("expected id fallback, got %q", s.Label())
		}

		s.SetProfile("user-1", "")
		if s.Label() != "user-1" {
			t.Errorf("expected user id fallback, got %q", s.Label())
		}

		s.SetProfile("user-1", "Jane")
		if s.Label() != "Jane" {
			t.Errorf("expected display name, got %q", s.Label())
		}
	})
}

func TestArtistThumbnail(t *testing.T) {
	tt := []struct {
		name   string
		images []Image
		want   string
	}{
		{name: "none", images: nil, want: ""},
		{name: "one", images: []Image{{URL: "a"}}, want: "a"},
		{name: "two", images: []Image{{URL: "a"}, {URL: "b"}}, want: "b"},
		{name: "three", images: []Image{{URL: "a"}, {URL: "b"}, {URL: "c"}}, want: "b"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			a := Artist{ID: "1", Name: "Artist", Images: tc.images}
			if got := a.Thumbnail(); got != tc.want {
				t.Errorf("Thumbnail() = %q, want %q", got, tc.want)
			}
		})
	}
}
