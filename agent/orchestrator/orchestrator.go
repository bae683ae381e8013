// Package orchestrator runs one inbound turn end to end: system prompt
// rendering, first-contact welcome, the tool-calling reasoning loop and
// the checkout post-conditions.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	contractx "github.com/ventaluz/ventaluz/agent/contract"
	toolx "github.com/ventaluz/ventaluz/agent/tool"
)

// ApologyReply is the fixed customer-visible fallback for any turn that
// failed inside the reasoning loop. Content must stay stable; it is what
// customers see whenever the agent breaks.
const ApologyReply = "Disculpa, tuve un pequeño inconveniente técnico. ¿Podrías repetirme tu consulta?"

const defaultMaxIterations = 8

type TurnInput struct {
	CustomerID string
	SenderName string
	Text       string
	History    []contractx.ChatTurn
	Tenant     *contractx.TenantConfig
}

type TurnOutput struct {
	Reply string
	Trace *toolx.TurnTrace
}

type turnState struct {
	in           TurnInput
	systemPrompt string
	trace        *toolx.TurnTrace
	executor     toolx.Executor
	reply        string
}

type Config struct {
	// MaxIterations bounds the tool-call round trips per turn; zero takes
	// the default.
	MaxIterations int
}

type Orchestrator struct {
	model einomodel.ToolCallingChatModel
	deps  toolx.Deps

	graphRunner compose.Runnable[TurnInput, TurnOutput]

	maxIterations int
	now           func() time.Time
}

func New(model einomodel.ToolCallingChatModel, deps toolx.Deps, cfg Config) (*Orchestrator, error) {
	if model == nil {
		return nil, errors.New("chat model is required")
	}
	if deps.Products == nil {
		return nil, errors.New("product store is required")
	}
	if deps.Checkout == nil {
		return nil, errors.New("checkout service is required")
	}
	if deps.Channel == nil {
		return nil, errors.New("outbound channel is required")
	}

	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}

	o := &Orchestrator{
		model:         model,
		deps:          deps,
		maxIterations: maxIterations,
		now:           time.Now,
	}

	graphRunner, err := o.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// RunTurn decides what to say back to the customer for one inbound
// message. The caller owns history persistence and delivery; a returned
// error means the turn failed and the apology fallback applies.
func (o *Orchestrator) RunTurn(ctx context.Context, in TurnInput) (TurnOutput, error) {
	out, err := o.graphRunner.Invoke(ctx, in)
	if err != nil {
		return TurnOutput{}, err
	}
	return out, nil
}

func (o *Orchestrator) compileTurnGraph(ctx context.Context) (compose.Runnable[TurnInput, TurnOutput], error) {
	graph := compose.NewGraph[TurnInput, TurnOutput]()

	if err := graph.AddLambdaNode("validate_input",
		compose.InvokableLambda(func(ctx context.Context, in TurnInput) (*turnState, error) {
			return validateInput(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_input: %w", err)
	}

	if err := graph.AddLambdaNode("welcome_path",
		compose.InvokableLambda(func(ctx context.Context, st *turnState) (*turnState, error) {
			return o.runWelcome(ctx, st)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node welcome_path: %w", err)
	}

	if err := graph.AddLambdaNode("agent_path",
		compose.InvokableLambda(func(ctx context.Context, st *turnState) (*turnState, error) {
			return o.runAgent(ctx, st)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node agent_path: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, st *turnState) (TurnOutput, error) {
			return finalizeReply(st)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, st *turnState) (string, error) {
			if st == nil {
				return "", fmt.Errorf("%w: turn state is nil", contractx.ErrValidation)
			}
			if len(st.in.History) == 0 {
				return "welcome_path", nil
			}
			return "agent_path", nil
		},
		map[string]bool{
			"welcome_path": true,
			"agent_path":   true,
		},
	)

	if err := graph.AddEdge(compose.START, "validate_input"); err != nil {
		return nil, fmt.Errorf("add edge start->validate_input: %w", err)
	}
	if err := graph.AddBranch("validate_input", branch); err != nil {
		return nil, fmt.Errorf("add welcome branch: %w", err)
	}
	if err := graph.AddEdge("welcome_path", "finalize_reply"); err != nil {
		return nil, fmt.Errorf("add edge welcome_path->finalize_reply: %w", err)
	}
	if err := graph.AddEdge("agent_path", "finalize_reply"); err != nil {
		return nil, fmt.Errorf("add edge agent_path->finalize_reply: %w", err)
	}
	if err := graph.AddEdge("finalize_reply", compose.END); err != nil {
		return nil, fmt.Errorf("add edge finalize_reply->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("agent.turn_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile turn graph: %w", err)
	}
	return runner, nil
}

func validateInput(in TurnInput) (*turnState, error) {
	if strings.TrimSpace(in.CustomerID) == "" {
		return nil, fmt.Errorf("%w: customer id is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(in.Text) == "" {
		return nil, fmt.Errorf("%w: message text is required", contractx.ErrValidation)
	}
	if in.Tenant == nil {
		return nil, fmt.Errorf("%w: tenant config is required", contractx.ErrValidation)
	}
	return &turnState{in: in}, nil
}

func finalizeReply(st *turnState) (TurnOutput, error) {
	if st == nil {
		return TurnOutput{}, fmt.Errorf("%w: turn state is nil", contractx.ErrValidation)
	}
	reply := strings.TrimSpace(st.reply)
	if reply == "" {
		return TurnOutput{}, fmt.Errorf("%w: agent returned empty reply", contractx.ErrModelInvoke)
	}
	return TurnOutput{Reply: reply, Trace: st.trace}, nil
}
