package shell_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-go-golems/kbassist/pkg/api"
	"github.com/go-go-golems/kbassist/pkg/chat"
	"github.com/go-go-golems/kbassist/pkg/mockbackend"
	"github.com/go-go-golems/kbassist/pkg/schedule"
	"github.com/go-go-golems/kbassist/pkg/shell"
	"github.com/go-go-golems/kbassist/pkg/toast"
	"github.com/go-go-golems/kbassist/pkg/uploader"
	"github.com/stretchr/testify/require"
)

// Upload a document from an empty knowledge base, then ask about it.
func TestUploadThenAskScenario(t *testing.T) {
	srv := httptest.NewServer(mockbackend.New().Router())
	defer srv.Close()
	client := api.NewClient(srv.URL)
	ctx := context.Background()
	clock := schedule.NewManual()

	app := shell.New(client, shell.WithToasts(toast.NewManager(toast.WithScheduler(clock))))
	app.Mount(ctx)
	require.True(t, app.State().Loaded)
	require.Equal(t, shell.PanelWelcome, app.State().MainPanel())

	app.ToggleUploader()
	up := uploader.New(client,
		uploader.WithScheduler(clock),
		uploader.WithOnSuccess(func() { app.OnUploadSuccess(ctx) }),
	)

	content := strings.Repeat("summary ", 1225)
	require.Len(t, content, 9800)
	require.True(t, up.Drop(api.BytesFile("report.pdf", []byte(content))))
	require.True(t, up.Upload(ctx))

	st := up.State()
	require.Equal(t, uploader.PhaseSuccess, st.Phase)
	require.Equal(t, 12, st.Chunks)
	require.Contains(t, st.Status, "12 text chunks")

	// the list only reloads once the success delay has passed
	require.Empty(t, app.State().Documents)
	clock.Advance(uploader.SuccessDelay)

	require.Equal(t, []string{"report.pdf"}, app.State().Documents)
	require.False(t, app.State().ShowUploader)
	require.Equal(t, shell.PanelChat, app.State().MainPanel())

	session := chat.NewSession(client)
	require.True(t, session.Send(ctx, "What is the summary?"))

	transcript := session.State().Transcript
	require.Len(t, transcript, 3)
	require.Equal(t, chat.Greeting, transcript[0].Content)
	require.Equal(t, api.RoleUser, transcript[1].Role)
	require.Equal(t, "What is the summary?", transcript[1].Content)
	require.Equal(t, api.RoleAssistant, transcript[2].Role)
	require.Equal(t, []string{"report.pdf"}, transcript[2].Sources)
}
