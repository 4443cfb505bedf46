package main

import (
	"io"

	"github.com/rs/zerolog/log"

	"github.com/sw965/tabrl"
	"github.com/sw965/tabrl/export"
	"github.com/sw965/tabrl/game/blackjack"
	"github.com/sw965/tabrl/game/gambler"
	"github.com/sw965/tabrl/game/jackscarrental"
	"github.com/sw965/tabrl/mathx/randx"
	"github.com/sw965/tabrl/mc"
	"github.com/sw965/tabrl/plot"
	"github.com/sw965/tabrl/ql"
	"github.com/sw965/tabrl/vi"
)

// result is what a run leaves behind for reporting. q is nil for value iteration.
type result[S comparable, A plot.Number] struct {
	name    string
	states  []S
	actions func(S) []A
	v       tabrl.StateValues[S]
	pi      tabrl.Policy[S, A]
	q       tabrl.ActionValues[S, A]
}

// greedyValues reads V(s) = Q(s, π(s)) off a learned table.
func greedyValues[S, A comparable](q tabrl.ActionValues[S, A], pi tabrl.Policy[S, A]) tabrl.StateValues[S] {
	v := tabrl.StateValues[S]{}
	for s, as := range pi {
		if len(as) > 0 {
			v[s] = q.Get(s, as[0])
		}
	}
	return v
}

func report[S comparable, A plot.Number](w io.Writer, r result[S, A]) error {
	valueHeader := []string{"s", "V(s)"}
	policyHeader := []string{"s", "a"}
	values := export.ValueRows(r.v, r.states)
	policy := export.PolicyRows(r.pi, r.states)

	if err := export.WriteListing(w, valueHeader, values); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	if err := export.WriteListing(w, policyHeader, policy); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}

	vs := make([]float64, 0, len(r.states))
	for _, s := range r.states {
		vs = append(vs, r.v[s])
	}
	if err := export.WriteHistogram(w, vs, 10); err != nil {
		return err
	}

	if err := export.SaveTable(outputPath(r.name+".value.txt"), valueHeader, values); err != nil {
		return err
	}
	if err := export.SaveTable(outputPath(r.name+".action.txt"), policyHeader, policy); err != nil {
		return err
	}
	if r.q != nil {
		if err := export.SaveTable(outputPath(r.name+".q.txt"), []string{"s", "a", "Q(s,a)"}, export.ActionValueRows(r.q, r.states, r.actions)); err != nil {
			return err
		}
	}
	log.Info().Str("dir", cfg.OutputDir).Str("name", r.name).Msg("tables-saved")

	if cfg.Plot {
		path := outputPath(r.name + ".html")
		if err := plot.Save(path, plot.Values(r.name+" V(s)", r.v, r.states), plot.Policy(r.name+" π(s)", r.pi, r.states)); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("charts-saved")
	}
	return nil
}

func runGambler(w io.Writer, m string) error {
	task := cfg.GamblerTask()
	if err := task.Validate(); err != nil {
		return err
	}
	states := task.StateSpace()

	switch m {
	case "vi":
		engine := vi.New[gambler.State, gambler.Action](task)
		engine.MaxSweeps = cfg.MaxSweeps
		v := tabrl.StateValues[gambler.State]{}
		if _, err := engine.ValueIteration(cfg.Theta, v); err != nil {
			return err
		}
		pi, err := engine.GreedyPolicy(v)
		if err != nil {
			return err
		}
		return report(w, result[gambler.State, gambler.Action]{name: "gambler.vi", states: states, v: v, pi: pi})
	case "mc":
		engine := mc.New[gambler.State, gambler.Action](task, randx.New(cfg.Seed))
		engine.MaxEpisodeSteps = cfg.MaxEpisodeSteps
		q := tabrl.ActionValues[gambler.State, gambler.Action]{}
		c := tabrl.ActionValues[gambler.State, gambler.Action]{}
		pi := tabrl.Policy[gambler.State, gambler.Action]{}
		if err := engine.PolicyEvaluation(q, c, pi, cfg.Epsilon, cfg.Episodes); err != nil {
			return err
		}
		return report(w, result[gambler.State, gambler.Action]{name: "gambler.mc", states: states, actions: task.ActionSpace, v: greedyValues(q, pi), pi: pi, q: q})
	case "ql":
		engine := ql.New[gambler.State, gambler.Action](task, randx.New(cfg.Seed))
		engine.MaxEpisodeSteps = cfg.MaxEpisodeSteps
		q := tabrl.ActionValues[gambler.State, gambler.Action]{}
		if err := engine.ValueEvaluation(q, cfg.Epsilon, cfg.Alpha, cfg.Episodes); err != nil {
			return err
		}
		pi := engine.GreedyPolicy(q, states)
		return report(w, result[gambler.State, gambler.Action]{name: "gambler.ql", states: states, actions: task.ActionSpace, v: greedyValues(q, pi), pi: pi, q: q})
	}
	return unknownMethod(m)
}

func runBlackjack(w io.Writer, m string) error {
	task := blackjack.New()
	states := task.StateSpace()

	switch m {
	case "mc":
		engine := mc.New[blackjack.State, blackjack.Action](task, randx.New(cfg.Seed))
		engine.MaxEpisodeSteps = cfg.MaxEpisodeSteps
		q := tabrl.ActionValues[blackjack.State, blackjack.Action]{}
		c := tabrl.ActionValues[blackjack.State, blackjack.Action]{}
		pi := tabrl.Policy[blackjack.State, blackjack.Action]{}
		if err := engine.PolicyEvaluation(q, c, pi, cfg.Epsilon, cfg.Episodes); err != nil {
			return err
		}
		return report(w, result[blackjack.State, blackjack.Action]{name: "blackjack.mc", states: states, actions: task.ActionSpace, v: greedyValues(q, pi), pi: pi, q: q})
	case "ql":
		engine := ql.New[blackjack.State, blackjack.Action](task, randx.New(cfg.Seed))
		engine.MaxEpisodeSteps = cfg.MaxEpisodeSteps
		q := tabrl.ActionValues[blackjack.State, blackjack.Action]{}
		if err := engine.ValueEvaluation(q, cfg.Epsilon, cfg.Alpha, cfg.Episodes); err != nil {
			return err
		}
		pi := engine.GreedyPolicy(q, states)
		return report(w, result[blackjack.State, blackjack.Action]{name: "blackjack.ql", states: states, actions: task.ActionSpace, v: greedyValues(q, pi), pi: pi, q: q})
	}
	return unknownMethod(m)
}

func runJacks(w io.Writer) error {
	task, err := jackscarrental.New(cfg.JacksCarRentalConfig())
	if err != nil {
		return err
	}
	log.Info().Float64("dropped-mass", task.DroppedMass()).Msg("jacks-truncated")

	engine := vi.New[jackscarrental.State, jackscarrental.Action](task)
	engine.MassTolerance = task.DroppedMass() + vi.DefaultMassTolerance
	engine.MaxSweeps = cfg.MaxSweeps

	v := tabrl.StateValues[jackscarrental.State]{}
	if _, err := engine.ValueIteration(cfg.Theta, v); err != nil {
		return err
	}
	pi, err := engine.GreedyPolicy(v)
	if err != nil {
		return err
	}
	return report(w, result[jackscarrental.State, jackscarrental.Action]{name: "jacks", states: task.StateSpace(), v: v, pi: pi})
}
