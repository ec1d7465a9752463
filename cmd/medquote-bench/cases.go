// README: Bench checks: environment, migration, chat endpoint contract, session persistence and load.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"medquote/internal/modules/session"
	"medquote/internal/service"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"
)

// pricingProbe is answered by the refusal guard without any AI call.
const pricingProbe = "How is the price calculated? Show me your rate table."

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

type summary struct{ pass, fail, skipped int }

func summarize(results []Result) summary {
	var s summary
	for _, r := range results {
		switch r.Status {
		case statusPass:
			s.pass++
		case statusFail:
			s.fail++
		case statusSkip:
			s.skipped++
		}
	}
	return s
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 30 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency.Round(time.Millisecond))
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		{Name: "Env: Postgres connect", Run: checkPostgres},
		{Name: "Env: Redis connect", Run: checkRedis},
		{Name: "Migration: apply (optional)", Run: applyMigration},
		{Name: "Migration: tables exist", Run: tablesExist},
		{Name: "Rates: stored table covers every category", Run: storedRates},

		{Name: "API: health", Run: func(ctx context.Context, r *Runner) Result {
			return r.get(ctx, base+"/health", "OK")
		}},
		{Name: "API: metrics exposed", Run: func(ctx context.Context, r *Runner) Result {
			return r.get(ctx, base+"/metrics", "medquote_")
		}},

		statusCase("Chat: malformed JSON -> 400", base+"/api/chat", "{", http.StatusBadRequest),
		statusCase("Chat: missing message -> 400", base+"/api/chat", `{"sessionId":"x"}`, http.StatusBadRequest),
		statusCase("Chat: negative days -> 400", base+"/api/chat", `{"message":"hi","days":-1}`, http.StatusBadRequest),

		{Name: "Chat: pricing question is refused", Run: func(ctx context.Context, r *Runner) Result {
			start := time.Now()
			reply, err := r.chat(ctx, base, "", pricingProbe)
			if err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			if reply.Reply != service.RefusalReply {
				return Result{Status: statusFail, Note: "unexpected reply: " + truncate(reply.Reply, 80)}
			}
			if reply.SessionID == "" {
				return Result{Status: statusFail, Note: "no session id issued"}
			}
			return Result{Status: statusPass, Latency: time.Since(start)}
		}},
		{Name: "Session: concurrent turns are all persisted", Run: concurrentTurns},
		{Name: "Load: refusal path", Run: func(ctx context.Context, r *Runner) Result {
			return perfLoad(ctx, r, base+"/api/chat", map[string]any{"message": pricingProbe})
		}},
	}
}

func checkPostgres(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusSkip, Note: "db not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.db.Ping(ctx); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass}
}

func checkRedis(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: statusSkip, Note: "redis not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass}
}

func applyMigration(ctx context.Context, r *Runner) Result {
	if !r.cfg.ApplyMigration {
		return Result{Status: statusSkip, Note: "apply-migration=false"}
	}
	if r.db == nil {
		return Result{Status: statusFail, Note: "db not configured"}
	}
	sql, err := os.ReadFile(r.cfg.MigrationPath)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	for _, s := range splitSQL(string(sql)) {
		if _, err := r.db.Exec(ctx, s); err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
	}
	return Result{Status: statusPass}
}

func tablesExist(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusSkip, Note: "db not configured"}
	}
	tables, err := extractTables(r.cfg.MigrationPath)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	for _, t := range tables {
		var exists bool
		err := r.db.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
			t,
		).Scan(&exists)
		if err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		if !exists {
			return Result{Status: statusFail, Note: "missing table: " + t}
		}
	}
	return Result{Status: statusPass, Note: strings.Join(tables, ",")}
}

func storedRates(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusSkip, Note: "db not configured"}
	}
	rows, err := r.db.Query(ctx, "SELECT category, count(*) FROM rate_items GROUP BY category ORDER BY category")
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	defer rows.Close()

	var notes []string
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		notes = append(notes, fmt.Sprintf("%s=%d", cat, n))
	}
	if err := rows.Err(); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if len(notes) == 0 {
		return Result{Status: statusSkip, Note: "rate_items is empty; server uses the built-in table"}
	}
	if len(notes) < 3 {
		return Result{Status: statusFail, Note: "categories missing: " + strings.Join(notes, " ")}
	}
	return Result{Status: statusPass, Note: strings.Join(notes, " ")}
}

// concurrentTurns fires N turns at one session at once; with per-session
// serialization the stored history holds exactly two turns per request.
func concurrentTurns(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: statusSkip, Note: "redis not configured"}
	}
	id := "bench-" + uuid.NewString()
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < r.cfg.Concurrency; i++ {
		g.Go(func() error {
			_, err := r.chat(gctx, r.cfg.BaseURL, id, pricingProbe)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	latency := time.Since(start)

	raw, err := r.redis.Get(ctx, "session:"+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Result{Status: statusFail, Note: "session not stored in redis (server using memory store?)"}
	}
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	var s session.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	_ = r.redis.Del(ctx, "session:"+id).Err()

	want := 2 * r.cfg.Concurrency
	if len(s.History) != want {
		return Result{Status: statusFail, Latency: latency, Note: fmt.Sprintf("history=%d want=%d", len(s.History), want)}
	}
	return Result{Status: statusPass, Latency: latency, Note: fmt.Sprintf("history=%d", want)}
}

type chatReply struct {
	SessionID string `json:"sessionId"`
	Reply     string `json:"reply"`
}

func (r *Runner) chat(ctx context.Context, base, sessionID, message string) (chatReply, error) {
	body, _ := json.Marshal(map[string]any{"sessionId": sessionID, "message": message})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return chatReply{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.httpc.Do(req)
	if err != nil {
		return chatReply{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return chatReply{}, fmt.Errorf("status=%d", resp.StatusCode)
	}
	var out chatReply
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return chatReply{}, err
	}
	return out, nil
}

func (r *Runner) get(ctx context.Context, url, wantBody string) Result {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	latency := time.Since(start)
	if resp.StatusCode != http.StatusOK {
		return Result{Status: statusFail, Latency: latency, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
	}
	if !strings.Contains(string(b), wantBody) {
		return Result{Status: statusFail, Latency: latency, Note: "body missing " + wantBody}
	}
	return Result{Status: statusPass, Latency: latency}
}

func statusCase(name, url, body string, want int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			start := time.Now()
			resp, err := r.httpc.Do(req)
			if err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			latency := time.Since(start)

			note := fmt.Sprintf("status=%d", resp.StatusCode)
			if resp.StatusCode == want {
				return Result{Status: statusPass, Latency: latency, Note: note}
			}
			return Result{Status: statusFail, Latency: latency, Note: note}
		},
	}
}

func perfLoad(ctx context.Context, r *Runner, url string, payload any) Result {
	b, _ := json.Marshal(payload)
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount atomic.Int64
	wg := sync.WaitGroup{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
				req.Header.Set("Content-Type", "application/json")
				resp, err := r.httpc.Do(req)
				if err != nil {
					errCount.Add(1)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					errCount.Add(1)
					continue
				}
				count.Add(1)
			}
		}()
	}
	wg.Wait()

	if count.Load() == 0 {
		return Result{Status: statusFail, Note: "no requests completed"}
	}
	rps := float64(count.Load()) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount.Load())}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	matches := re.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	parts := strings.Split(strings.Join(filtered, "\n"), ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
