package hmr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almostnode/core/internal/vfstest"
)

type fakeTarget struct {
	messages []map[string]any
}

func (f *fakeTarget) PostMessage(payload map[string]any) error {
	f.messages = append(f.messages, payload)
	return nil
}

func TestEmitterClassifiesSourceChangeAsUpdate(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{"/app/page.tsx": "export default function Page() {}"})
	emitter := New(fs, Options{Now: func() int64 { return 42 }})

	var got []Update
	emitter.OnUpdate(func(u Update) { got = append(got, u) })
	require.NoError(t, emitter.Watch("/app"))

	fs.Touch("/app/page.tsx")

	require.Len(t, got, 1)
	assert.Equal(t, UpdateKind, got[0].Type)
	assert.Equal(t, int64(42), got[0].Timestamp)
}

func TestEmitterClassifiesOtherFileAsFullReload(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{"/app/data.json": "{}"})
	emitter := New(fs, Options{})

	var got []Update
	emitter.OnUpdate(func(u Update) { got = append(got, u) })
	require.NoError(t, emitter.Watch("/app"))

	fs.Touch("/app/data.json")

	require.Len(t, got, 1)
	assert.Equal(t, FullReloadKind, got[0].Type)
}

func TestEmitterPostsToTargetWindow(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{"/app/globals.css": "body{}"})
	emitter := New(fs, Options{Now: func() int64 { return 7 }})
	target := &fakeTarget{}
	emitter.SetTargetWindow(target)
	require.NoError(t, emitter.Watch("/app"))

	fs.Touch("/app/globals.css")

	require.Len(t, target.messages, 1)
	assert.Equal(t, "next-hmr", target.messages[0]["channel"])
	assert.Equal(t, "update", target.messages[0]["type"])
}

func TestEmitterIgnoresGlobMatches(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{"/app/node_modules/pkg/index.js": "export default 1;"})
	emitter := New(fs, Options{IgnoreGlobs: []string{"**/node_modules/**"}})

	var got []Update
	emitter.OnUpdate(func(u Update) { got = append(got, u) })
	require.NoError(t, emitter.Watch("/app"))

	fs.Touch("/app/node_modules/pkg/index.js")

	assert.Empty(t, got)
}

func TestStopClosesWatchers(t *testing.T) {
	fs := vfstest.NewFromFiles(map[string]string{"/app/page.tsx": "x"})
	emitter := New(fs, Options{})
	var got []Update
	emitter.OnUpdate(func(u Update) { got = append(got, u) })
	require.NoError(t, emitter.Watch("/app"))
	emitter.Stop()

	fs.Touch("/app/page.tsx")
	assert.Empty(t, got)
}
