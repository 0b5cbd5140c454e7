package segment

import (
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", []string{}},
		{"whitespace", "  \n\t ", []string{}},
		{
			"two sentences",
			"Industrialization changed production methods. Consequently, urbanization accelerated.",
			[]string{"Industrialization changed production methods.", "Consequently, urbanization accelerated."},
		},
		{
			"question and exclamation",
			"Why did it fail? Nobody knew! Then it rained.",
			[]string{"Why did it fail?", "Nobody knew!", "Then it rained."},
		},
		{
			"decimal numbers",
			"Prices rose 3.5 percent. Wages did not.",
			[]string{"Prices rose 3.5 percent.", "Wages did not."},
		},
		{
			"abbreviations",
			"Some metals, e.g. copper, conduct well. Dr. Kim agreed.",
			[]string{"Some metals, e.g. copper, conduct well.", "Dr. Kim agreed."},
		},
		{
			"closing quotes",
			`He said "stop." Then he left.`,
			[]string{`He said "stop."`, "Then he left."},
		},
		{
			"newlines",
			"Title line\nBody sentence here.",
			[]string{"Title line", "Body sentence here."},
		},
		{
			"korean punctuation",
			"산업화는 생산 방식을 바꾸었다. 그 결과 도시화가 가속되었다.",
			[]string{"산업화는 생산 방식을 바꾸었다.", "그 결과 도시화가 가속되었다."},
		},
		{
			"korean endings without punctuation",
			"비가 많이 왔다 그래서 강이 넘쳤다",
			[]string{"비가 많이 왔다 그래서 강이 넘쳤다"},
		},
		{
			"korean declarative ending",
			"사람들이 도시로 이동했다 그 결과 도시가 커졌다",
			[]string{"사람들이 도시로 이동했다", "그 결과 도시가 커졌다"},
		},
		{
			"full-width terminators",
			"정말인가요？네！",
			[]string{"정말인가요？", "네！"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%q)\n got %q\nwant %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestEnglishLocaleIgnoresKoreanEndings(t *testing.T) {
	got := New(English).Split("사람들이 도시로 이동했다 그 결과 도시가 커졌다")
	if len(got) != 1 {
		t.Errorf("English locale split Korean text into %d sentences", len(got))
	}
}
