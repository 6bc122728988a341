package di

import (
	"errors"
	"strings"
	"testing"
)

type serviceA struct{}
type serviceB struct{}
type serviceC struct{}

// 同一个 ServiceKey 注册两次：失败并保留首次注册
func TestDuplicateRegistration(t *testing.T) {
	container := NewContainer()

	if _, err := Provide(container, func() *serviceA { return &serviceA{} }); err != nil {
		t.Fatalf("First registration failed: %v", err)
	}
	_, err := Provide(container, func() *serviceA { return &serviceA{} })
	if !errors.Is(err, ErrDuplicateRegistration) {
		t.Fatalf("Expected ErrDuplicateRegistration, got: %v", err)
	}

	// 同类型不同名字不冲突
	if _, err := Provide(container, func() *serviceA { return &serviceA{} }, WithName("secondary")); err != nil {
		t.Fatalf("Named registration should not conflict: %v", err)
	}

	if err := container.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
}

// 配方声明了未注册的依赖：Build 失败
func TestMissingDependency(t *testing.T) {
	container := NewContainer()
	Register[*serviceA](container, WithFactory(func(b *serviceB) *serviceA {
		return &serviceA{}
	}))

	err := container.Build()
	if !errors.Is(err, ErrMissingDependency) {
		t.Fatalf("Expected ErrMissingDependency, got: %v", err)
	}
}

// 循环依赖：Build 失败并给出完整链条
func TestCircularDependency(t *testing.T) {
	container := NewContainer()
	Register[*serviceA](container, WithFactory(func(b *serviceB) *serviceA { return &serviceA{} }))
	Register[*serviceB](container, WithFactory(func(c *serviceC) *serviceB { return &serviceB{} }))
	Register[*serviceC](container, WithFactory(func(a *serviceA) *serviceC { return &serviceC{} }))

	err := container.Build()
	if !errors.Is(err, ErrCircularDependency) {
		t.Fatalf("Expected ErrCircularDependency, got: %v", err)
	}
	if !strings.Contains(err.Error(), "->") {
		t.Errorf("Expected cycle chain in error, got: %v", err)
	}
}

// 俘获依赖：Singleton 依赖 Scoped 在 Build 时检出
func TestCaptiveDependency(t *testing.T) {
	container := NewContainer()
	Register[*serviceA](container,
		WithFactory(func(b *serviceB) *serviceA { return &serviceA{} }),
		WithSingleton(),
	)
	Register[*serviceB](container,
		WithFactory(func() *serviceB { return &serviceB{} }),
		WithScoped(),
	)

	err := container.Build()
	if !errors.Is(err, ErrCaptiveDependency) {
		t.Fatalf("Expected ErrCaptiveDependency, got: %v", err)
	}
}

// Singleton 依赖 Transient 同样是俘获
func TestCaptiveTransientDependency(t *testing.T) {
	container := NewContainer()
	Register[*serviceA](container,
		WithFactory(func(b *serviceB) *serviceA { return &serviceA{} }),
		WithSingleton(),
	)
	Register[*serviceB](container,
		WithFactory(func() *serviceB { return &serviceB{} }),
		WithTransient(),
	)

	err := container.Build()
	if !errors.Is(err, ErrCaptiveDependency) {
		t.Fatalf("Expected ErrCaptiveDependency, got: %v", err)
	}
}

// Scoped 依赖 Transient、Transient 依赖 Scoped 都不算俘获
func TestNarrowerConsumersAreNotCaptive(t *testing.T) {
	container := NewContainer()
	Register[*serviceA](container,
		WithFactory(func(b *serviceB) *serviceA { return &serviceA{} }),
		WithScoped(),
	)
	Register[*serviceB](container,
		WithFactory(func(c *serviceC) *serviceB { return &serviceB{} }),
		WithTransient(),
	)
	Register[*serviceC](container,
		WithFactory(func() *serviceC { return &serviceC{} }),
		WithScoped(),
	)

	if err := container.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	scope := container.CreateScope()
	defer scope.Close()
	if _, err := Resolve[*serviceA](scope); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
}

// Build 之前不可解析，Build 之后不可再注册
func TestBuildFreezesRegistrations(t *testing.T) {
	container := NewContainer()
	Register[*serviceA](container, WithFactory(func() *serviceA { return &serviceA{} }))

	if _, err := Resolve[*serviceA](container); err == nil {
		t.Fatal("Expected resolve before Build to fail")
	}

	if err := container.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	_, err := Provide(container, func() *serviceB { return &serviceB{} })
	if err == nil {
		t.Fatal("Expected registration after Build to fail")
	}
}

// 未注册的服务：解析失败并带上请求的键
func TestUnregisteredService(t *testing.T) {
	container := NewContainer()
	if err := container.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	_, err := Resolve[*serviceA](container)
	if !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("Expected ErrNotRegistered, got: %v", err)
	}
}

// 构造失败：错误包装原因，不缓存失败结果（Transient），单例则固化首次结果
func TestConstructionFailure(t *testing.T) {
	boom := errors.New("boom")
	container := NewContainer()
	Register[*serviceA](container,
		WithFactory(func() (*serviceA, error) { return nil, boom }),
		WithTransient(),
	)

	if err := container.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	_, err := Resolve[*serviceA](container)
	if !errors.Is(err, ErrConstruction) {
		t.Fatalf("Expected ErrConstruction, got: %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("Expected wrapped cause, got: %v", err)
	}
}

// 单例构造失败后不重试：后续解析返回同一个错误
func TestSingletonConstructionFailureIsSticky(t *testing.T) {
	calls := 0
	container := NewContainer()
	Register[*serviceA](container,
		WithFactory(func() (*serviceA, error) {
			calls++
			return nil, errors.New("boom")
		}),
		WithSingleton(),
	)

	if err := container.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	_, err1 := Resolve[*serviceA](container)
	_, err2 := Resolve[*serviceA](container)
	if err1 == nil || err2 == nil {
		t.Fatal("Expected construction errors")
	}
	if calls != 1 {
		t.Errorf("Expected recipe to run once, ran %d times", calls)
	}
}
