/*
Package pressflow is the engine behind the PRESS AI editorial product: it
drives the article-creation workflow (upload -> type selection -> title
selection -> content editing -> image selection -> finalization) for
journalist sessions, delivers source material to an automation webhook,
polls for AI-suggested headlines, and mirrors every session to a hosted
row store.

The engine follows a ports-and-adapters layout. Core navigation and
validation live in internal/runtime; persistence, caching and transport
are interfaces in pkg/ports with Redis, REST and in-memory adapters. The
Engine type in this package wires them together behind a small API.

# Usage

	cfg := config.DefaultConfig()
	cfg.Webhook.URL = "https://n8n.example.com/webhook/press"
	cfg.Titles.Endpoint = "https://functions.example.com/titles"

	eng, err := pressflow.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Close(context.Background())

	ctx := context.Background()
	state, _ := eng.StartSession(ctx, "session-123", "user-42")

	// Attach material, then submit it for processing.
	_ = eng.AddFiles(ctx, "session-123", files, payloads)
	_ = eng.Submit(ctx, "session-123")

	// The watcher advances the workflow once the agent confirms.
	state, _ = eng.State(ctx, "session-123")
	fmt.Println(state.Step)
*/
package pressflow
