package command

import (
	"context"
	"testing"

	"appforge/internal/config"
)

func TestBuildApp_DefaultActionServes(t *testing.T) {
	serveCalled := 0
	app := BuildApp(Deps{
		LoadConfig: func() config.Config { return config.Config{LogLevel: "debug"} },
		RunServe: func(_ context.Context, cfg config.Config) error {
			serveCalled++
			if cfg.LogLevel != "debug" {
				t.Errorf("config not threaded: %+v", cfg)
			}
			return nil
		},
	})
	if err := app.RunContext(context.Background(), []string{"appforge"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if serveCalled != 1 {
		t.Fatalf("serve called %d times", serveCalled)
	}
}

func TestBuildApp_ServeCommand(t *testing.T) {
	serveCalled := 0
	app := BuildApp(Deps{
		LoadConfig: func() config.Config { return config.Config{} },
		RunServe: func(context.Context, config.Config) error {
			serveCalled++
			return nil
		},
	})
	if err := app.RunContext(context.Background(), []string{"appforge", "serve"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if serveCalled != 1 {
		t.Fatalf("serve called %d times", serveCalled)
	}
}

func TestBuildApp_MigrateUp(t *testing.T) {
	migrateCalled := 0
	app := BuildApp(Deps{
		LoadConfig: func() config.Config { return config.Config{} },
		RunMigrateUp: func(context.Context, config.Config) error {
			migrateCalled++
			return nil
		},
	})
	if err := app.RunContext(context.Background(), []string{"appforge", "migrate", "up"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if migrateCalled != 1 {
		t.Fatalf("migrate called %d times", migrateCalled)
	}
}

func TestBuildApp_MissingRunnerIsAnError(t *testing.T) {
	app := BuildApp(Deps{LoadConfig: func() config.Config { return config.Config{} }})
	if err := app.RunContext(context.Background(), []string{"appforge", "serve"}); err == nil {
		t.Fatalf("expected error when serve runner is absent")
	}
}
