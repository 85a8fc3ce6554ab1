package scenario

import "context"

// Pointer binds one inbound event to the FSM, the signal that handled it and
// the actor it came from.
type Pointer struct {
	fsm    *FSM
	signal Signal
	event  any
	data   Data
	actor  Actor
}

func NewPointer(fsm *FSM, signal Signal, event any, data Data, actor Actor) *Pointer {
	return &Pointer{
		fsm:    fsm,
		signal: signal,
		event:  event,
		data:   data,
		actor:  actor,
	}
}

func (p *Pointer) Actor() Actor { return p.actor }

func (p *Pointer) Signal() Signal { return p.signal }

// Advance moves the actor to the state the bound signal leads to.
func (p *Pointer) Advance(ctx context.Context) error {
	p.fsm.log.DebugContext(ctx, "received a request to move to next state", "actor", p.actor.String())
	return p.fsm.ExecuteNextTransition(ctx, p.signal, p.event, p.data, p.actor)
}

// Retreat moves the actor back to its previous state.
func (p *Pointer) Retreat(ctx context.Context) error {
	p.fsm.log.DebugContext(ctx, "received a request to move to previous state", "actor", p.actor.String())
	return p.fsm.ExecuteBackTransition(ctx, p.event, p.data, p.actor)
}
