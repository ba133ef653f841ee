package sources

import "testing"

func TestLocateInitialData(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		wantOK bool
		wantID string
	}{
		{
			name:   "var with script close",
			markup: `<html><script>var ytInitialData = {"id":"a","n":{"x":1}};</script></html>`,
			wantOK: true, wantID: "a",
		},
		{
			name:   "var without script close",
			markup: `<script>var ytInitialData = {"id":"b"}; var other = 1;</script>`,
			wantOK: true, wantID: "b",
		},
		{
			name:   "window assignment",
			markup: `<script>window["ytInitialData"] = {"id":"c"};</script>`,
			wantOK: true, wantID: "c",
		},
		{
			name:   "bare assignment",
			markup: `<script>ytInitialData = {"id":"d"};</script>`,
			wantOK: true, wantID: "d",
		},
		{
			name:   "terminator inside string falls through to script scan",
			markup: `<script>var ytInitialData = {"id":"e","t":"a};b"}; var z = 1;</script>`,
			wantOK: true, wantID: "e",
		},
		{
			name: "undecodable first match falls through to a later strategy",
			markup: `<script>var ytInitialData = {broken};</script>` +
				`<script>window["ytInitialData"] = {"id":"f"};</script>`,
			wantOK: true, wantID: "f",
		},
		{
			name:   "no marker",
			markup: `<html><body>consent required</body></html>`,
			wantOK: false,
		},
		{
			name:   "empty page",
			markup: ``,
			wantOK: false,
		},
		{
			name:   "marker with invalid json",
			markup: `<script>var ytInitialData = {not json};</script>`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, ok := LocateInitialData([]byte(tt.markup))
			if ok != tt.wantOK {
				t.Fatalf("LocateInitialData ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got := tree.Key("id").StrOr(""); got != tt.wantID {
				t.Errorf("id = %q, want %q", got, tt.wantID)
			}
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", `{"a":1} trailing`, `{"a":1}`},
		{"nested", `{"a":{"b":{}}};x`, `{"a":{"b":{}}}`},
		{"brace in string", `{"a":"}{"}rest`, `{"a":"}{"}`},
		{"escaped quote", `{"a":"x\"}"}z`, `{"a":"x\"}"}`},
		{"escaped backslash before quote", `{"a":"x\\"}z`, `{"a":"x\\"}`},
		{"unterminated", `{"a":1`, ``},
		{"not an object", `[1,2]`, ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(extractJSONObject([]byte(tt.in)))
			if got != tt.want {
				t.Errorf("extractJSONObject(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNodeAbsentChains(t *testing.T) {
	tree, ok := LocateInitialData([]byte(`<script>var ytInitialData = {"a":[{"b":"x"}],"n":3};</script>`))
	if !ok {
		t.Fatal("expected tree")
	}
	if s, _ := tree.Key("a").Index(0).Key("b").Str(); s != "x" {
		t.Errorf("a[0].b = %q, want x", s)
	}
	// Every wrong turn yields an absent node rather than panicking.
	for _, n := range []Node{
		tree.Key("missing").Key("deeper"),
		tree.Key("a").Index(5),
		tree.Key("a").Index(-1),
		tree.Key("n").Key("x"),
		tree.Key("a").Key("b"),
		Node{}.Path("x", "y"),
	} {
		if n.Exists() {
			t.Errorf("expected absent node, got %#v", n)
		}
		if _, ok := n.Str(); ok {
			t.Error("absent node returned a string")
		}
		if n.Items() != nil {
			t.Error("absent node returned items")
		}
	}
	if got := tree.Key("n").StrOr("def"); got != "def" {
		t.Errorf("StrOr on number = %q, want def", got)
	}
}
