package domain

import (
	"testing"
	"time"
)

func TestParsePostDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw     string
		want    PostDate
		wantErr bool
	}{
		{raw: "20240115", want: "20240115"},
		{raw: "2024-01-15", want: "20240115"},
		{raw: "2024-01-15T09:30:00+09:00", want: "20240115"},
		{raw: "2024.01.15", want: "20240115"},
		{raw: "20241345", wantErr: true},
		{raw: "2024", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParsePostDate(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParsePostDate(%q) expected error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParsePostDate(%q) returned error: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("ParsePostDate(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func TestPostDateOrdering(t *testing.T) {
	t.Parallel()

	if !PostDate("20240201").After("20240131") {
		t.Fatalf("fixed-width dates must order lexicographically")
	}
	if PostDate("20240115").After("20240115") {
		t.Fatalf("equal dates are not after each other")
	}

	day, err := PostDate("20240115").Time(time.UTC)
	if err != nil {
		t.Fatalf("Time returned error: %v", err)
	}
	if PostDateOf(day) != "20240115" {
		t.Fatalf("round trip through time failed: %s", PostDateOf(day))
	}
}

func TestCandidatePostID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		link string
		want string
	}{
		{link: "https://blog.naver.com/theholdshop/223001", want: "223001"},
		{link: "https://blog.naver.com/theholdshop/223001/", want: "223001"},
		{link: "https://blog.naver.com/theholdshop/223001?fromRss=true&trackingCode=rss", want: "223001"},
		{link: "https://blog.naver.com/PostView.naver?blogId=theholdshop&logNo=223002", want: "223002"},
		{link: "", want: ""},
	}
	for _, tc := range cases {
		if got := (CandidatePost{Link: tc.link}).PostID(); got != tc.want {
			t.Fatalf("PostID(%q) = %q, want %q", tc.link, got, tc.want)
		}
	}
}

func TestCategory(t *testing.T) {
	t.Parallel()

	for _, c := range Categories() {
		parsed, err := ParseCategory(string(c))
		if err != nil || parsed != c {
			t.Fatalf("ParseCategory(%s) = %s, %v", c, parsed, err)
		}
		if c.Label() == string(c) {
			t.Fatalf("category %s has no label", c)
		}
	}
	if _, err := ParseCategory("UNKNOWN"); err == nil {
		t.Fatalf("expected error for unknown category")
	}
	if CategoryResetComplete.Label() != "세팅완료" {
		t.Fatalf("unexpected label %s", CategoryResetComplete.Label())
	}
}
