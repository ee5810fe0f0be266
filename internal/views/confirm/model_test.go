package confirm

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func press(m Model, k tea.KeyPressMsg) (Model, tea.Cmd) {
	next, cmd := m.Update(k)
	return next.(Model), cmd
}

func TestModel_Keys(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyPressMsg
		want Choice
	}{
		{"enter pastes", tea.KeyPressMsg{Code: tea.KeyEnter}, ChoicePaste},
		{"c copies", tea.KeyPressMsg{Code: 'c', Text: "c"}, ChoiceCopy},
		{"esc dismisses", tea.KeyPressMsg{Code: tea.KeyEscape}, ChoiceDismiss},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, cmd := press(New("482913", "Messages", time.Minute), tt.key)
			assert.Equal(t, tt.want, m.Choice())
			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
		})
	}
}

func TestModel_OtherKeysIgnored(t *testing.T) {
	m, cmd := press(New("482913", "Messages", time.Minute), tea.KeyPressMsg{Code: 'x', Text: "x"})
	assert.Nil(t, cmd)
	assert.Equal(t, ChoiceDismiss, m.Choice())
}

func TestModel_Timeout(t *testing.T) {
	m := New("482913", "Mail", 2*time.Second)

	next, cmd := m.Update(tickMsg(m.now.Add(time.Second)))
	require.NotNil(t, cmd)
	assert.Contains(t, next.(Model).View().Content, "closes in 1s")

	_, cmd = next.Update(tickMsg(m.now.Add(2 * time.Second)))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_View(t *testing.T) {
	v := New("A1B2", "Mail", time.Minute).View()
	assert.Contains(t, v.Content, "A 1 B 2")
	assert.Contains(t, v.Content, "from Mail")
}

type fakeActions struct {
	calls []string
	err   error
}

func (a *fakeActions) Copy(code string) error {
	a.calls = append(a.calls, "copy "+code)
	return a.err
}

func (a *fakeActions) PasteAndSubmit(_ context.Context, code string) error {
	a.calls = append(a.calls, "paste "+code)
	return nil
}

func TestApply(t *testing.T) {
	a := &fakeActions{}
	require.NoError(t, Apply(context.Background(), ChoicePaste, "1234", a))
	assert.Equal(t, []string{"copy 1234", "paste 1234"}, a.calls)

	a = &fakeActions{}
	require.NoError(t, Apply(context.Background(), ChoiceCopy, "1234", a))
	assert.Equal(t, []string{"copy 1234"}, a.calls)

	a = &fakeActions{}
	require.NoError(t, Apply(context.Background(), ChoiceDismiss, "1234", a))
	assert.Empty(t, a.calls)

	a = &fakeActions{err: errors.New("no clipboard")}
	assert.Error(t, Apply(context.Background(), ChoicePaste, "1234", a))
	assert.Equal(t, []string{"copy 1234"}, a.calls)
}
