package actor

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

const (
	seqTag1 uint32 = 1 << 1
	seqTag2 uint32 = 1 << 2
)

// seqRecorder collects the activation/deactivation order of the sequence
// plugins attached to one actor.
type seqRecorder struct {
	initSeq   uint32
	deinitSeq uint32
}

// seqPlugin records its tag on activate and deactivate.
type seqPlugin struct {
	BasePlugin

	rec  *seqRecorder
	tag  uint32
	name PluginID
}

func newSeqPlugin(rec *seqRecorder, tag uint32, name PluginID) *seqPlugin {
	p := &seqPlugin{
		rec:  rec,
		tag:  tag,
		name: name,
	}
	p.bind(p)
	return p
}

func (p *seqPlugin) ID() PluginID {
	return p.name
}

func (p *seqPlugin) Activate(a *Actor) {
	p.rec.initSeq = p.rec.initSeq<<8 | p.tag
	p.BasePlugin.Activate(a)
}

func (p *seqPlugin) Deactivate() {
	p.rec.deinitSeq = p.rec.deinitSeq<<8 | p.tag
	p.BasePlugin.Deactivate()
}

// buggyPlugin vetoes its own activation.
type buggyPlugin struct {
	BasePlugin
}

func newBuggyPlugin() *buggyPlugin {
	p := &buggyPlugin{}
	p.bind(p)
	return p
}

func (p *buggyPlugin) ID() PluginID {
	return "buggy"
}

func (p *buggyPlugin) Activate(a *Actor) {
	p.actor = a
	a.CommitPluginActivation(p.self, false)
}

// TestPluginInitDeinitSequence verifies that plugins activate in list order
// and deactivate in list-reverse order.
func TestPluginInitDeinitSequence(t *testing.T) {
	t.Parallel()

	sys := NewSystem(Config{})

	rec := &seqRecorder{}
	a, err := sys.BuildActor().
		Timeout(time.Second).
		Plugins(
			newSeqPlugin(rec, seqTag1, "seq-1"),
			newSeqPlugin(rec, seqTag2, "seq-2"),
		).
		Finish()
	require.NoError(t, err)

	require.Len(t, a.ActivatingPlugins(), 2)
	require.Len(t, a.DeactivatingPlugins(), 0)

	a.ActivatePlugins()
	require.Equal(t, seqTag1<<8|seqTag2, rec.initSeq)
	require.Len(t, a.ActivatingPlugins(), 0)
	require.Len(t, a.DeactivatingPlugins(), 0)

	a.DeactivatePlugins()
	require.Equal(t, seqTag2<<8|seqTag1, rec.deinitSeq)
	require.Len(t, a.DeactivatingPlugins(), 0)
}

// TestPluginInitFailure verifies that a plugin committing ok=false aborts
// init: the chain stops at the failing plugin and the plugins that already
// succeeded are reverse-deactivated.
func TestPluginInitFailure(t *testing.T) {
	t.Parallel()

	sys := NewSystem(Config{})

	rec := &seqRecorder{}
	a, err := sys.BuildActor().
		Timeout(time.Second).
		Plugins(
			newSeqPlugin(rec, seqTag1, "seq-1"),
			newSeqPlugin(rec, seqTag2, "seq-2"),
			newBuggyPlugin(),
		).
		Finish()
	require.NoError(t, err)

	require.Len(t, a.ActivatingPlugins(), 3)

	a.ActivatePlugins()

	require.Equal(t, seqTag1<<8|seqTag2, rec.initSeq)
	require.Len(t, a.ActivatingPlugins(), 1)
	require.Equal(t, seqTag2<<8|seqTag1, rec.deinitSeq)
	require.Len(t, a.DeactivatingPlugins(), 0)

	require.True(t, errors.Is(a.ShutdownReason(), ErrPluginInitFailed))
}

// TestBuilderRequiresTimeout verifies that Finish fails without a configured
// timeout.
func TestBuilderRequiresTimeout(t *testing.T) {
	t.Parallel()

	sys := NewSystem(Config{})

	_, err := sys.BuildSupervisor().Finish()
	require.ErrorIs(t, err, ErrTimeoutRequired)

	_, err = sys.BuildActor().Finish()
	require.ErrorIs(t, err, ErrTimeoutRequired)
}

// TestManagedInitFailureEscalates verifies that a plugin veto during a
// supervised build surfaces through Finish and the system error hook, and
// forces the actor terminal.
func TestManagedInitFailureEscalates(t *testing.T) {
	t.Parallel()

	var escalated error
	sys := NewSystem(Config{
		OnError: func(_ *Actor, err error) {
			escalated = err
		},
	})

	sup, err := sys.BuildSupervisor().Timeout(time.Second).Finish()
	require.NoError(t, err)

	rec := &seqRecorder{}
	a, err := sup.BuildActor().
		Timeout(time.Second).
		Plugins(
			newSeqPlugin(rec, seqTag1, "seq-1"),
			newBuggyPlugin(),
		).
		Finish()
	require.ErrorIs(t, err, ErrPluginInitFailed)
	require.ErrorIs(t, escalated, ErrPluginInitFailed)

	require.Equal(t, StateShutDown, a.State())
	require.Empty(t, a.Points())
}
