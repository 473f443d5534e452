package commands

import (
	"fmt"
	"time"

	"github.com/roasbeef/lattice/actor"
	"github.com/roasbeef/lattice/thread"
	"github.com/spf13/cobra"
)

var (
	// rounds is the number of ping/pong exchanges to run.
	rounds int
)

// ping asks the ponger for a pong.
type ping struct {
	actor.BasePayload

	seq int
}

// pong answers a ping with the same sequence number.
type pong struct {
	actor.BasePayload

	seq int
}

// pinger sends pings and shuts the tree down after the final pong.
type pinger struct {
	actor.BaseBehavior

	self       *actor.Actor
	pongerAddr *actor.Address
	rounds     int

	pingsSent     int
	pongsReceived int
}

func (p *pinger) Configure(a *actor.Actor, pl actor.Plugin) {
	if starter, ok := pl.(*actor.Starter); ok {
		p.self = a
		starter.SubscribeActor(actor.NewHandler(a, p.onPong))
	}
}

func (p *pinger) OnStart(a *actor.Actor) {
	a.Send(p.pongerAddr, ping{seq: 1})
	p.pingsSent++
}

func (p *pinger) onPong(msg pong) {
	p.pongsReceived++
	fmt.Printf("pong %d\n", msg.seq)

	if msg.seq >= p.rounds {
		p.self.Owner().DoShutdown(nil)
		return
	}

	p.self.Send(p.pongerAddr, ping{seq: msg.seq + 1})
	p.pingsSent++
}

// ponger answers every ping.
type ponger struct {
	actor.BaseBehavior

	self       *actor.Actor
	pingerAddr *actor.Address

	pingsReceived int
}

func (p *ponger) Configure(a *actor.Actor, pl actor.Plugin) {
	if starter, ok := pl.(*actor.Starter); ok {
		p.self = a
		starter.SubscribeActor(actor.NewHandler(a, p.onPing))
	}
}

func (p *ponger) onPing(msg ping) {
	p.pingsReceived++
	p.self.Send(p.pingerAddr, pong{seq: msg.seq})
}

// pingPongCmd runs a two-actor ping/pong exchange on a thread-backed
// context.
var pingPongCmd = &cobra.Command{
	Use:   "pingpong",
	Short: "Run a ping/pong exchange between two actors",
	RunE: func(cmd *cobra.Command, args []string) error {
		sys := actor.NewSystem(actor.Config{
			OnError: func(failed *actor.Actor, err error) {
				fmt.Printf("actor %s failed: %v\n",
					failed.ID(), err)
			},
		})

		sup, err := sys.BuildSupervisor().
			ID("pingpong-root").
			Timeout(5 * time.Second).
			Finish()
		if err != nil {
			return err
		}

		pingerBhv := &pinger{rounds: rounds}
		pongerBhv := &ponger{}

		pingerActor, err := sup.BuildActor().
			ID("pinger").
			Behavior(pingerBhv).
			Timeout(5 * time.Second).
			Finish()
		if err != nil {
			return err
		}
		pongerBhv.pingerAddr = pingerActor.Address()

		pongerActor, err := sup.BuildActor().
			ID("ponger").
			Behavior(pongerBhv).
			Timeout(5 * time.Second).
			Finish()
		if err != nil {
			return err
		}
		pingerBhv.pongerAddr = pongerActor.Address()

		sys.Start()
		thread.NewContext(sys).Run()

		fmt.Printf("done: pings=%d pongs=%d\n",
			pingerBhv.pingsSent, pingerBhv.pongsReceived)

		return nil
	},
}

func init() {
	pingPongCmd.Flags().IntVar(
		&rounds, "rounds", 3,
		"Number of ping/pong exchanges",
	)
	rootCmd.AddCommand(pingPongCmd)
}
