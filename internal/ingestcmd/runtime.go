package ingestcmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/data-literacy-alliance/oerbservatory/internal/config"
	"github.com/data-literacy-alliance/oerbservatory/internal/corpus"
	"github.com/data-literacy-alliance/oerbservatory/internal/fetch"
	"github.com/data-literacy-alliance/oerbservatory/internal/gemini"
	"github.com/data-literacy-alliance/oerbservatory/internal/grounding"
	"github.com/data-literacy-alliance/oerbservatory/internal/normalize"
	"github.com/data-literacy-alliance/oerbservatory/internal/ollama"
	"github.com/data-literacy-alliance/oerbservatory/internal/openai"
	"github.com/data-literacy-alliance/oerbservatory/internal/providers"
	"github.com/data-literacy-alliance/oerbservatory/internal/sources"
	"github.com/data-literacy-alliance/oerbservatory/internal/sources/dalia"
	"github.com/data-literacy-alliance/oerbservatory/internal/sources/gtn"
	"github.com/data-literacy-alliance/oerbservatory/internal/sources/oerhub"
	"github.com/data-literacy-alliance/oerbservatory/internal/sources/oersi"
	"github.com/data-literacy-alliance/oerbservatory/internal/sources/tess"
)

// runtime is what every ingest command builds from the environment.
type runtime struct {
	cfg    config.Config
	client *fetch.Client
}

func loadRuntime(refresh bool) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	client := fetch.New(fetch.Config{
		CacheDir: cfg.CacheDir,
		Refresh:  refresh,
		Retry:    fetch.DefaultRetryConfig(),
	})
	return &runtime{cfg: cfg, client: client}, nil
}

func (rt *runtime) authors() normalize.AuthorResolver {
	if rt.cfg.Grounding == config.GroundingOff {
		return normalize.AuthorResolver{}
	}
	return normalize.AuthorResolver{
		People:        grounding.NewCached(grounding.NewORCID(rt.client, rt.cfg.ORCIDURL)),
		Organizations: grounding.NewCached(grounding.NewROR(rt.client, rt.cfg.RORURL)),
	}
}

// embedder returns nil when dense similarity is disabled.
func (rt *runtime) embedder() providers.Embedder {
	pc := providers.Config{Model: rt.cfg.EmbeddingModel}
	switch rt.cfg.EmbeddingProvider {
	case "gemini":
		return gemini.New(pc)
	case "ollama":
		return ollama.New(pc)
	case "openai":
		return openai.New(pc)
	default:
		return nil
	}
}

func (rt *runtime) source(name string) (sources.Source, error) {
	switch name {
	case dalia.Name:
		return dalia.New(dalia.Config{
			Client: rt.client,
			Dir:    rt.cfg.DALIACurationDir,
			URLs:   rt.cfg.DALIACurationURLs,
		}), nil
	case gtn.Name:
		return gtn.New(gtn.Config{Client: rt.client}), nil
	case oerhub.Name:
		return oerhub.New(oerhub.Config{Client: rt.client, Authors: rt.authors()}), nil
	case oersi.Name:
		return oersi.New(oersi.Config{Client: rt.client}), nil
	case tess.Name:
		instances, err := tess.LookupInstances(rt.cfg.TeSSInstances)
		if err != nil {
			return nil, err
		}
		return tess.New(tess.Config{Client: rt.client, Authors: rt.authors(), Instances: instances}), nil
	default:
		return nil, fmt.Errorf("unknown source %q", name)
	}
}

func (rt *runtime) assembler(cutoff float64, out io.Writer) *corpus.Assembler {
	e := rt.embedder()
	if e != nil {
		slog.Info("Dense similarity enabled", "provider", rt.cfg.EmbeddingProvider, "model", e.Model())
	}
	return corpus.New(corpus.Config{
		OutputDir: rt.cfg.OutputDir,
		Cutoff:    cutoff,
		Parallel:  rt.cfg.Parallel,
		Embedder:  e,
		Out:       out,
	})
}
