package chat

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Vovarama1992/tabletalk-host/internal/conversation"
	"github.com/Vovarama1992/tabletalk-host/internal/db/dbtest"
	"github.com/Vovarama1992/tabletalk-host/internal/restaurant"
)

func TestHandleTurn_AgainstSQLite(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	restaurants := restaurant.NewRepo(db)
	transcripts := conversation.NewRepo(db)

	rest := &restaurant.Restaurant{Name: "TableTalk Bistro"}
	require.NoError(t, restaurants.Create(ctx, rest,
		[]restaurant.MenuItem{{Name: "Grilled Salmon", Price: 24.5}},
		[]string{"Greet guests warmly."},
	))
	conv, err := transcripts.Create(ctx, rest.ID, conversation.DefaultTitle)
	require.NoError(t, err)

	completer := &mockCompleter{}
	for i := 0; i < 2; i++ {
		completer.On("StreamReply", mock.Anything, mock.Anything, mock.Anything).
			Return(&fakeStream{deltas: []string{"Our special is ", "Grilled Salmon."}}, nil).
			Once()
	}

	svc, err := NewService(restaurants, transcripts, completer, Options{}, zerolog.Nop())
	require.NoError(t, err)

	body := []byte(`{"restaurantId":"` + rest.ID + `","conversationId":"` + conv.ID + `","messages":[
		{"role":"user","content":"hi"},
		{"role":"assistant","content":"Welcome!"},
		{"role":"user","content":"What's the special?"}
	]}`)

	var out bytes.Buffer
	res, err := svc.HandleTurn(ctx, body, &out)
	require.NoError(t, err)
	require.NoError(t, res.PersistErr)

	first := out.String()
	assert.Equal(t, "Our special is Grilled Salmon.", first)
	res, err = svc.HandleTurn(ctx, body, &bytes.Buffer{})
	require.NoError(t, err)
	require.NoError(t, res.PersistErr)

	history, err := transcripts.History(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)

	var contents []string
	for _, m := range history {
		contents = append(contents, m.Content)
	}
	assert.Equal(t, []string{"What's the special?", first, "What's the special?", first}, contents)
	assert.Equal(t, conversation.RoleUser, history[0].Role)
	assert.Equal(t, conversation.RoleAssistant, history[1].Role)
	require.NotNil(t, history[1].ScoreTotal)
	assert.Equal(t, 100, *history[1].ScoreTotal)

	system := completer.Calls[0].Arguments.String(1)
	assert.Contains(t, system, "Grilled Salmon ($24.50)")
	assert.Contains(t, system, "Greet guests warmly.")
}

func TestHandleTurn_ForeignConversationAgainstSQLite(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	restaurants := restaurant.NewRepo(db)
	transcripts := conversation.NewRepo(db)

	a := &restaurant.Restaurant{Name: "A"}
	b := &restaurant.Restaurant{Name: "B"}
	require.NoError(t, restaurants.Create(ctx, a, nil, nil))
	require.NoError(t, restaurants.Create(ctx, b, nil, nil))
	conv, err := transcripts.Create(ctx, b.ID, conversation.DefaultTitle)
	require.NoError(t, err)

	completer := &mockCompleter{}
	svc, err := NewService(restaurants, transcripts, completer, Options{}, zerolog.Nop())
	require.NoError(t, err)

	body := []byte(`{"restaurantId":"` + a.ID + `","conversationId":"` + conv.ID + `","messages":[{"role":"user","content":"hi"}]}`)
	_, err = svc.HandleTurn(ctx, body, &bytes.Buffer{})

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "conversation", nf.Resource)
	completer.AssertNotCalled(t, "StreamReply", mock.Anything, mock.Anything, mock.Anything)

	history, err := transcripts.History(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}
