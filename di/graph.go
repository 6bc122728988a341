package di

import (
	"fmt"
	"reflect"
	"strings"
)

// graphBuilder 处理依赖图的构建和验证。
// 所有注册图错误（依赖缺失、循环、俘获）都在这里静态检出，
// 保证容器在接受任何解析请求之前 fail fast。
type graphBuilder struct {
	definitions map[ServiceKey]*ServiceDefinition
}

func newGraphBuilder(defs map[ServiceKey]*ServiceDefinition) *graphBuilder {
	return &graphBuilder{
		definitions: defs,
	}
}

// validate 预计算所有配方的注入 schema 并验证依赖图。
// 返回拓扑顺序（依赖在前），供容器关闭时逆序释放单例。
func (g *graphBuilder) validate() ([]ServiceKey, error) {
	dependencies := make(map[ServiceKey][]ServiceKey, len(g.definitions))

	// 1. 提取所有服务的依赖关系（可选且未注册的依赖不进入图）
	for key, def := range g.definitions {
		deps, err := g.inspectDependencies(def)
		if err != nil {
			return nil, err
		}
		dependencies[key] = deps
	}

	// 2. 俘获依赖检查：单例只能依赖单例。
	// 逐边检查即可覆盖传递依赖：合法的单例链上每个节点都是单例，
	// 任何指向更窄生命周期的边都会在它出现的那一条上被捕获。
	for key, deps := range dependencies {
		def := g.definitions[key]
		if def.Lifetime != Singleton {
			continue
		}
		for _, depKey := range deps {
			dep := g.definitions[depKey]
			if dep.Lifetime != Singleton {
				return nil, fmt.Errorf("%w: 单例 %v 依赖 %v 服务 %v",
					ErrCaptiveDependency, key, dep.Lifetime, depKey)
			}
		}
	}

	// 3. 拓扑排序（基于 DFS）并检测循环
	const (
		unvisited = iota
		inStack
		done
	)
	state := make(map[ServiceKey]int, len(g.definitions))
	order := make([]ServiceKey, 0, len(g.definitions))
	var stack []ServiceKey

	var visit func(u ServiceKey) error
	visit = func(u ServiceKey) error {
		state[u] = inStack
		stack = append(stack, u)

		for _, v := range dependencies[u] {
			switch state[v] {
			case unvisited:
				if err := visit(v); err != nil {
					return err
				}
			case inStack:
				return fmt.Errorf("%w: %s", ErrCircularDependency, chainString(stack, v))
			}
		}

		stack = stack[:len(stack)-1]
		state[u] = done
		order = append(order, u)
		return nil
	}

	for key := range g.definitions {
		if state[key] == unvisited {
			if err := visit(key); err != nil {
				return nil, err
			}
		}
	}

	return order, nil
}

// chainString 把循环路径渲染成 "A -> B -> A" 的形式。
func chainString(stack []ServiceKey, repeat ServiceKey) string {
	start := 0
	for i, key := range stack {
		if key == repeat {
			start = i
			break
		}
	}

	parts := make([]string, 0, len(stack)-start+1)
	for _, key := range stack[start:] {
		parts = append(parts, key.String())
	}
	parts = append(parts, repeat.String())
	return strings.Join(parts, " -> ")
}

// inspectDependencies 返回服务声明的依赖键列表。
// 它同时填充 ServiceDefinition.schema，并为工厂配方预编译调用器。
// 必需依赖缺少注册时返回 ErrMissingDependency（严格模式）。
func (g *graphBuilder) inspectDependencies(def *ServiceDefinition) ([]ServiceKey, error) {
	def.schema = &injectionSchema{}

	// 情况 1: 预构建实例，无依赖
	if def.IsValue {
		return nil, nil
	}

	// 情况 2: 工厂/构造函数
	if def.IsFactory || (def.Impl != nil && reflect.TypeOf(def.Impl).Kind() == reflect.Func) {
		return g.analyzeFunction(def)
	}

	// 情况 3: 结构体字段注入
	return g.analyzeStruct(def)
}

func (g *graphBuilder) analyzeFunction(def *ServiceDefinition) ([]ServiceKey, error) {
	fnType := reflect.TypeOf(def.Impl)
	if fnType.Kind() != reflect.Func {
		return nil, fmt.Errorf("di: %v 的配方期望函数，得到 %v", def.Key(), fnType)
	}

	deps := make([]ServiceKey, 0, fnType.NumIn())
	for i := 0; i < fnType.NumIn(); i++ {
		// 工厂函数参数不支持命名注入，默认为空名称
		key := ServiceKey{Type: fnType.In(i)}
		if _, exists := g.definitions[key]; !exists {
			return nil, fmt.Errorf("%w: %v 的参数 %d 需要 %v",
				ErrMissingDependency, def.Key(), i, key)
		}
		deps = append(deps, key)
		def.schema.Args = append(def.schema.Args, key)
	}

	def.invoke = newInvoker(def.Impl)
	return deps, nil
}

func (g *graphBuilder) analyzeStruct(def *ServiceDefinition) ([]ServiceKey, error) {
	typ := def.ImplType
	if typ == nil {
		typ = def.Type
	}
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, nil
	}

	var deps []ServiceKey
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tagValue, hasTag := field.Tag.Lookup("di")
		if !hasTag {
			continue
		}

		// 解析 tag: "name,optional"
		parts := strings.Split(tagValue, ",")
		name := strings.TrimSpace(parts[0])
		isOptional := false

		if name == "?" || name == "optional" {
			name = ""
			isOptional = true
		}
		for _, part := range parts[1:] {
			part = strings.TrimSpace(part)
			if part == "optional" || part == "?" {
				isOptional = true
			}
		}

		def.schema.Fields = append(def.schema.Fields, fieldInjection{
			Index:       i,
			Name:        field.Name,
			Type:        field.Type,
			Optional:    isOptional,
			ServiceName: name,
		})

		depKey := ServiceKey{Type: field.Type, Name: name}
		if _, exists := g.definitions[depKey]; !exists {
			if isOptional {
				// 可选依赖未注册：跳过注入，不进入图
				continue
			}
			return nil, fmt.Errorf("%w: %v 的字段 %s 需要 %v",
				ErrMissingDependency, def.Key(), field.Name, depKey)
		}
		deps = append(deps, depKey)
	}
	return deps, nil
}
