package main

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/neuraloverlay/apex-go-sdk/apex"
	"github.com/neuraloverlay/apex-go-sdk/config"
	"github.com/neuraloverlay/apex-go-sdk/memory"
	"github.com/neuraloverlay/apex-go-sdk/memory/embedder/mock"
	badgerstore "github.com/neuraloverlay/apex-go-sdk/memory/store/badger"
	chromemstore "github.com/neuraloverlay/apex-go-sdk/memory/store/chromem"
	"github.com/neuraloverlay/apex-go-sdk/model"
	anthropicmodel "github.com/neuraloverlay/apex-go-sdk/model/anthropic"
	openaimodel "github.com/neuraloverlay/apex-go-sdk/model/openai"
)

// buildOptimizer assembles the optimizer from configuration: models,
// circuit breaker, memory manager, and loop parameters.
func buildOptimizer(cfg *config.Config) (*apex.Optimizer, func(), error) {
	gen := cfg.Generation

	genModel, err := buildModel(cfg, gen.Model)
	if err != nil {
		return nil, nil, err
	}
	criticModel := genModel
	if gen.CriticModel != "" && gen.CriticModel != gen.Model {
		criticModel, err = buildModel(cfg, gen.CriticModel)
		if err != nil {
			return nil, nil, err
		}
	}

	apexCfg := &apex.APEXConfig{
		MaxRounds:          gen.MaxRounds,
		QualityThreshold:   gen.QualityThreshold,
		Temperature:        gen.Temperature,
		MaxTokens:          gen.MaxTokens,
		UseMemory:          cfg.Memory.Enabled,
		CandidatesPerRound: gen.CandidatesPerRound,
	}

	opts := []apex.Option{
		apex.WithLogger(logger),
		apex.WithQuality(apex.KeywordCoverage{}),
	}

	cleanup := func() {}
	if cfg.Memory.Enabled {
		mgr, closeFn, err := buildMemory(cfg)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, apex.WithMemory(mgr))
		cleanup = closeFn
	}

	generator := apex.NewModelGenerator(genModel,
		apex.WithGeneratorTemperature(gen.Temperature),
		apex.WithGeneratorMaxTokens(gen.MaxTokens),
	)
	critic := apex.NewModelCritic(criticModel)

	return apex.NewOptimizer(generator, critic, apexCfg, opts...), cleanup, nil
}

// buildModel constructs a provider-backed model, wrapped with a circuit
// breaker when enabled.
func buildModel(cfg *config.Config, name string) (model.Model, error) {
	var m model.Model

	switch cfg.Generation.Provider {
	case "anthropic":
		mc := cfg.Models["anthropic"]
		m = anthropicmodel.New(func(o *anthropicmodel.Options) {
			o.Model = anthropic.Model(name)
			o.APIKey = mc.APIKey
		})
	case "openai":
		mc := cfg.Models["openai"]
		m = openaimodel.New(func(o *openaimodel.Options) {
			o.Model = name
			o.APIKey = mc.APIKey
			o.BaseURL = mc.BaseURL
		})
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Generation.Provider)
	}

	if cfg.CircuitBreaker.Enabled {
		bc := model.DefaultBreakerConfig()
		if cfg.CircuitBreaker.Timeout > 0 {
			bc.Timeout = cfg.CircuitBreaker.Timeout
		}
		if cfg.CircuitBreaker.Interval > 0 {
			bc.Interval = cfg.CircuitBreaker.Interval
		}
		if cfg.CircuitBreaker.ReadyToTripRatio > 0 {
			bc.ReadyToTripRatio = cfg.CircuitBreaker.ReadyToTripRatio
		}
		m = model.WithBreaker(m, bc, logger)
	}

	return m, nil
}

// buildMemory constructs the memory manager from the configured store.
// The mock embedder keeps the default build dependency-free; build with
// the onnx tag and wire memory/embedder/onnx for real local embeddings.
func buildMemory(cfg *config.Config) (memory.Manager, func(), error) {
	var (
		store memory.Store
		err   error
	)

	switch cfg.Memory.Store {
	case "chromem":
		store, err = chromemstore.New(chromemstore.WithLogger(logger))
	case "badger":
		store, err = badgerstore.New(cfg.Memory.DBPath)
	default:
		return nil, nil, fmt.Errorf("unknown memory store: %s", cfg.Memory.Store)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open memory store: %w", err)
	}

	memCfg := &memory.Config{
		Enabled:             true,
		MinSimilarity:       cfg.Memory.MinSimilarity,
		RetrieveLimit:       cfg.Memory.RetrieveLimit,
		MaxPatternsPerOwner: memory.DefaultConfig.MaxPatternsPerOwner,
		DecayEnabled:        cfg.Memory.DecayEnabled,
		DecayHalfLife:       cfg.Memory.DecayHalfLife,
	}

	mgr, err := memory.NewNeuralMemoryManager(store, mock.New(), memCfg, memory.WithLogger(logger))
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	cleanup := func() {
		mgr.Close()
		store.Close()
	}
	return mgr, cleanup, nil
}
