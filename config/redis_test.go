package config

import "testing"

func TestRedisOptions(t *testing.T) {
	opt, err := RedisOptions("redis://:pw@cache:6380/2")
	if err != nil {
		t.Fatalf("RedisOptions(url): %v", err)
	}
	if opt.Addr != "cache:6380" || opt.DB != 2 || opt.Password != "pw" {
		t.Fatalf("unexpected options: addr=%q db=%d", opt.Addr, opt.DB)
	}

	opt, err = RedisOptions("localhost:6379")
	if err != nil {
		t.Fatalf("RedisOptions(addr): %v", err)
	}
	if opt.Addr != "localhost:6379" {
		t.Fatalf("Addr: want=%q got=%q", "localhost:6379", opt.Addr)
	}

	if _, err := RedisOptions(""); err == nil {
		t.Fatalf("RedisOptions(\"\"): expected error")
	}
}

func TestRedisAddrFromEnvPrecedence(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("REDIS_URI", "redis://a:6379")
	t.Setenv("REDIS_URL", "redis://b:6379")
	if got := RedisAddrFromEnv(); got != "redis://a:6379" {
		t.Fatalf("want=%q got=%q", "redis://a:6379", got)
	}
}
