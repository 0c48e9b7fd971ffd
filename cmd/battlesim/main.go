// Package main provides the battle simulator binary that loads content from
// YAML, assembles a party-versus-enemies encounter, and runs it to completion
// on a fixed timestep.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gekkinggu/turn-based-combat/internal/config"
	"github.com/gekkinggu/turn-based-combat/internal/game/battle"
	"github.com/gekkinggu/turn-based-combat/internal/game/behavior"
	"github.com/gekkinggu/turn-based-combat/internal/game/catalog"
	"github.com/gekkinggu/turn-based-combat/internal/game/dice"
	"github.com/gekkinggu/turn-based-combat/internal/observability"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	party := flag.String("party", "warrior,mage", "comma-separated party battler IDs, each optionally id:level")
	enemies := flag.String("enemies", "goblin,goblin,imp", "comma-separated enemy battler IDs, each optionally id:level")
	level := flag.Int("level", 100, "default battler level when not given per member")
	seed := flag.Int64("seed", 0, "deterministic RNG seed; 0 = crypto randomness")
	dt := flag.Float64("dt", 0.1, "simulated seconds per step")
	maxSteps := flag.Int("max-steps", 100000, "abort the battle after this many steps")
	scriptsDir := flag.String("behavior-scripts", "content/scripts/behaviors", "directory of Lua behavior scripts; empty = disabled")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	var src dice.Source
	if *seed != 0 {
		src = dice.NewSeededSource(*seed)
		logger.Info("using seeded randomness", zap.Int64("seed", *seed))
	} else {
		src = dice.NewCryptoSource()
	}

	cat, err := catalog.Load(cfg.Content.ActionsDir, cfg.Content.StatusesDir, cfg.Content.BattlersDir)
	if err != nil {
		logger.Fatal("loading content catalog", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("actions", len(cat.Actions.All())),
		zap.Int("statuses", len(cat.Statuses.All())),
		zap.Int("battlers", len(cat.Battlers.All())),
	)

	policies := behavior.NewRegistry()
	if *scriptsDir != "" {
		if err := registerLuaBehaviors(policies, *scriptsDir, logger); err != nil {
			logger.Fatal("loading behavior scripts", zap.Error(err))
		}
	}

	partySpecs, err := parseMembers(*party, *level)
	if err != nil {
		logger.Fatal("parsing -party", zap.Error(err))
	}
	enemySpecs, err := parseMembers(*enemies, *level)
	if err != nil {
		logger.Fatal("parsing -enemies", zap.Error(err))
	}

	b, err := battle.New(cat, partySpecs, enemySpecs, policies, battle.TuningFromConfig(cfg.Battle), src, logger)
	if err != nil {
		logger.Fatal("assembling battle", zap.Error(err))
	}

	// The simulator has no interactive player, so party decisions are
	// auto-committed with the aggressive policy.
	autopilot := behavior.NewAggressive()

	steps := 0
	for !b.IsTerminal() && steps < *maxSteps {
		steps++
		report(logger, b.Advance(*dt))

		for !b.IsTerminal() {
			snap, ok := b.PendingDecision()
			if !ok {
				break
			}
			decision, err := autopilot.Decide(snap, src)
			if err != nil {
				logger.Fatal("autopilot has no valid action", zap.Error(err))
			}
			events, err := b.CommitDecision(snap.Actor.ID, decision.ActionID, decision.TargetIDs)
			if err != nil {
				logger.Fatal("committing decision", zap.Error(err))
			}
			report(logger, events)
		}
	}

	outcome, done := b.Outcome()
	if !done {
		logger.Error("battle did not conclude",
			zap.Int("steps", steps),
			zap.Int("turns", b.Turn()),
		)
		os.Exit(1)
	}
	logger.Info("battle concluded",
		zap.String("outcome", outcome.String()),
		zap.Int("turns", b.Turn()),
		zap.Int("steps", steps),
		zap.Int("survivors", len(b.Party())+len(b.Enemies())),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// report logs each resolution event at info level with its narrative line.
func report(logger *zap.Logger, events []battle.Event) {
	for _, e := range events {
		logger.Info(e.Narrative,
			zap.String("kind", e.Kind.String()),
			zap.Int("turn", e.Turn),
			zap.String("source", e.SourceName),
			zap.String("target", e.TargetName),
			zap.Int("magnitude", e.Magnitude),
		)
	}
}

// parseMembers parses "id,id:level,id" into member specs.
func parseMembers(list string, defaultLevel int) ([]battle.MemberSpec, error) {
	var specs []battle.MemberSpec
	for _, raw := range strings.Split(list, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, levelPart, found := strings.Cut(raw, ":")
		lvl := defaultLevel
		if found {
			parsed, err := strconv.Atoi(levelPart)
			if err != nil || parsed < 1 {
				return nil, fmt.Errorf("member %q: bad level %q", raw, levelPart)
			}
			lvl = parsed
		}
		specs = append(specs, battle.MemberSpec{TemplateID: id, Level: lvl})
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("empty member list")
	}
	return specs, nil
}

// registerLuaBehaviors registers every .lua file in dir as a behavior policy
// named after the file. A missing directory is not an error; the built-in
// policies remain available.
func registerLuaBehaviors(policies *behavior.Registry, dir string, logger *zap.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		script, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		policy, err := behavior.NewLua(string(script), behavior.DefaultInstructionLimit)
		if err != nil {
			return fmt.Errorf("compiling %s: %w", path, err)
		}
		name := strings.TrimSuffix(entry.Name(), ".lua")
		if err := policies.Register(name, policy); err != nil {
			return err
		}
		logger.Info("registered behavior script", zap.String("name", name))
	}
	return nil
}
