package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"coverage-grid/internal/kv"
	"coverage-grid/internal/logger"
	"coverage-grid/internal/merchant"

	"github.com/joho/godotenv"
)

func printHelp() {
	fmt.Println("commands:")
	fmt.Println("  show            print the stored merchant config")
	fmt.Println("  list            one line per stored merchant")
	fmt.Println("  load <file>     replace the stored config with a JSON merchant list")
	fmt.Println("  dump <file>     write the stored config to a file")
	fmt.Println("  del             delete the stored config (defaults on next start)")
	fmt.Println("  help")
	fmt.Println("  exit")
}

// validate：与 merchant.LoadDefaults 相同的约束，避免写入一个启动时无法解析的 blob
func validate(b []byte) ([]merchant.Merchant, error) {
	var ms []merchant.Merchant
	if err := json.Unmarshal(b, &ms); err != nil {
		return nil, err
	}
	if len(ms) == 0 {
		return nil, errors.New("empty merchant list")
	}
	seen := map[string]bool{}
	for _, m := range ms {
		if seen[m.ID] {
			return nil, fmt.Errorf("duplicate merchant id %q", m.ID)
		}
		seen[m.ID] = true
	}
	return ms, nil
}

func run(ctx context.Context, s kv.Store, parts []string) error {
	switch parts[0] {
	case "show":
		b, err := s.Get(ctx, merchant.StorageKey)
		if err != nil {
			return err
		}
		fmt.Println(string(b))
	case "list":
		b, err := s.Get(ctx, merchant.StorageKey)
		if err != nil {
			return err
		}
		ms, err := validate(b)
		if err != nil {
			return err
		}
		for _, m := range ms {
			fmt.Printf("%s | %s | %.5f,%.5f | %.1f mi | %s\n", m.ID, m.Name, m.Center.Lat(), m.Center.Lng(), m.RadiusMiles, strings.Join(m.Codes, ","))
		}
	case "load":
		if len(parts) < 2 {
			return errors.New("usage: load <file>")
		}
		b, err := os.ReadFile(parts[1])
		if err != nil {
			return err
		}
		ms, err := validate(b)
		if err != nil {
			return err
		}
		norm, err := json.Marshal(ms)
		if err != nil {
			return err
		}
		if err := s.Set(ctx, merchant.StorageKey, norm); err != nil {
			return err
		}
		fmt.Println("stored", len(ms), "merchants")
	case "dump":
		if len(parts) < 2 {
			return errors.New("usage: dump <file>")
		}
		b, err := s.Get(ctx, merchant.StorageKey)
		if err != nil {
			return err
		}
		return os.WriteFile(parts[1], b, 0o644)
	case "del":
		if err := s.Delete(ctx, merchant.StorageKey); err != nil {
			return err
		}
		fmt.Println("deleted")
	default:
		printHelp()
	}
	return nil
}

func main() {
	envFile := ""
	for i := 1; i < len(os.Args); i++ {
		if os.Args[i] == "--env" && i+1 < len(os.Args) {
			envFile = os.Args[i+1]
			i++
		}
	}
	if envFile != "" {
		_ = godotenv.Load(envFile)
	} else {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	}
	logger.SetupWriter(os.Stderr)
	ctx := context.Background()
	s, closeKV, err := kv.OpenFromEnv(ctx)
	if err != nil {
		fmt.Println("kv error:", err)
		os.Exit(1)
	}
	defer closeKV()
	fmt.Println("merchant config kv cli ready")
	printHelp()
	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			break
		}
		parts := strings.Fields(in.Text())
		if len(parts) == 0 {
			continue
		}
		parts[0] = strings.ToLower(parts[0])
		if parts[0] == "exit" || parts[0] == "quit" {
			return
		}
		if err := run(ctx, s, parts); err != nil {
			if errors.Is(err, kv.ErrNotFound) {
				fmt.Println("no stored config")
				continue
			}
			fmt.Println("error:", err)
		}
	}
}
