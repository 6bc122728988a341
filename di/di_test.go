package di

import (
	"errors"
	"reflect"
	"testing"
)

// 城市目录示例：接口 + Transient 实现
type CityCatalog interface {
	Cities() []string
}

type staticCityCatalog struct{}

func (s *staticCityCatalog) Cities() []string {
	return []string{"New York", "Los Angeles", "Chicago", "Houston", "Phoenix"}
}

func NewCityCatalog() CityCatalog {
	return &staticCityCatalog{}
}

func TestResolveCityCatalog(t *testing.T) {
	container := NewContainer()
	Register[CityCatalog](container, WithFactory(NewCityCatalog), WithTransient())

	if err := container.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	catalog, err := Resolve[CityCatalog](container)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	want := []string{"New York", "Los Angeles", "Chicago", "Houston", "Phoenix"}
	if !reflect.DeepEqual(catalog.Cities(), want) {
		t.Errorf("Cities() = %v, want %v", catalog.Cities(), want)
	}
}

// 工厂参数注入：依赖由容器解析后传入
func TestFactoryArgumentInjection(t *testing.T) {
	type repo struct{ name string }
	type service struct{ repo *repo }

	container := NewContainer()
	Register[*repo](container, WithFactory(func() *repo { return &repo{name: "cities"} }))
	Register[*service](container, WithFactory(func(r *repo) *service { return &service{repo: r} }))

	if err := container.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	svc, err := Resolve[*service](container)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if svc.repo == nil || svc.repo.name != "cities" {
		t.Errorf("Expected injected repo, got %+v", svc.repo)
	}
}

type taggedRepo struct{ name string }

type taggedService struct {
	Repo    *taggedRepo `di:""`
	Backup  *taggedRepo `di:"backup"`
	Tracer  *taggedRepo `di:",optional"`
	private int         // 非导出字段不参与注入
}

// 结构体注入：di 标签、命名注入、optional
func TestStructFieldInjection(t *testing.T) {
	container := NewContainer()
	Register[*taggedRepo](container, WithFactory(func() *taggedRepo { return &taggedRepo{name: "primary"} }))
	Register[*taggedRepo](container,
		WithFactory(func() *taggedRepo { return &taggedRepo{name: "backup"} }),
		WithName("backup"),
	)
	Register[*taggedService](container)

	if err := container.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	svc, err := Resolve[*taggedService](container)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if svc.Repo == nil || svc.Repo.name != "primary" {
		t.Errorf("Expected primary repo, got %+v", svc.Repo)
	}
	if svc.Backup == nil || svc.Backup.name != "backup" {
		t.Errorf("Expected backup repo, got %+v", svc.Backup)
	}
	// Tracer 是 optional 且没有对应命名注册之外的冲突，命中默认注册
	if svc.Tracer == nil {
		t.Error("Expected optional field to be filled when registered")
	}
}

type optionalService struct {
	Missing *serviceB `di:",optional"`
}

// optional 依赖未注册时留零值，Build 与解析都成功
func TestOptionalDependencyMissing(t *testing.T) {
	container := NewContainer()
	Register[*optionalService](container)

	if err := container.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	svc, err := Resolve[*optionalService](container)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if svc.Missing != nil {
		t.Error("Expected optional missing dependency to stay nil")
	}
}

// 命名解析：同类型多个注册按名字区分
func TestNamedResolution(t *testing.T) {
	container := NewContainer()
	Register[*taggedRepo](container,
		WithFactory(func() *taggedRepo { return &taggedRepo{name: "east"} }),
		WithName("east"),
	)
	Register[*taggedRepo](container,
		WithFactory(func() *taggedRepo { return &taggedRepo{name: "west"} }),
		WithName("west"),
	)

	if err := container.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	east, err := ResolveNamed[*taggedRepo](container, "east")
	if err != nil {
		t.Fatalf("Resolve east failed: %v", err)
	}
	west, err := ResolveNamed[*taggedRepo](container, "west")
	if err != nil {
		t.Fatalf("Resolve west failed: %v", err)
	}
	if east.name != "east" || west.name != "west" {
		t.Errorf("Named resolution mismatch: east=%q west=%q", east.name, west.name)
	}

	// 默认名未注册
	_, err = Resolve[*taggedRepo](container)
	if !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("Expected ErrNotRegistered for unnamed key, got: %v", err)
	}
}

// 预构建实例按原样返回
func TestValueRegistration(t *testing.T) {
	instance := &taggedRepo{name: "prebuilt"}
	container := NewContainer()
	Register[*taggedRepo](container, WithValue(instance))

	if err := container.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	got, err := Resolve[*taggedRepo](container)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != instance {
		t.Error("Expected the exact prebuilt instance")
	}
}

// Invoke 注入函数参数并透传 error 返回值
func TestInvoke(t *testing.T) {
	container := NewContainer()
	Register[CityCatalog](container, WithFactory(NewCityCatalog))

	if err := container.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var seen []string
	err := Invoke(container, func(catalog CityCatalog) error {
		seen = catalog.Cities()
		return nil
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if len(seen) != 5 {
		t.Errorf("Expected 5 cities, got %d", len(seen))
	}

	boom := errors.New("boom")
	err = Invoke(container, func(catalog CityCatalog) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Expected propagated error, got: %v", err)
	}
}
