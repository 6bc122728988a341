package di

import (
	"fmt"
	"reflect"
)

// invoker 封装对工厂/构造函数的反射调用。
// Build 时预编译，调用路径只剩 fn.Call 和返回值检查。
type invoker func(args []reflect.Value) (any, error)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// newInvoker 为工厂函数创建调用器。
// 约定：第一个返回值是实例，最后一个返回值若为 error 则作为构造失败原因。
func newInvoker(fn any) invoker {
	fnVal := reflect.ValueOf(fn)

	return func(args []reflect.Value) (any, error) {
		results := fnVal.Call(args)
		if len(results) == 0 {
			return nil, fmt.Errorf("di: 工厂函数没有返回值")
		}

		if len(results) > 1 {
			last := results[len(results)-1]
			if last.Type().Implements(errorType) && !last.IsNil() {
				return nil, last.Interface().(error)
			}
		}

		first := results[0]
		if first.Kind() == reflect.Ptr || first.Kind() == reflect.Interface {
			if first.IsNil() {
				return nil, fmt.Errorf("di: 工厂函数返回了 nil 实例")
			}
		}

		return first.Interface(), nil
	}
}

// resolver 执行构造配方并递归解析依赖。
// 解析上下文 ctx 决定依赖的解析路径：根容器或某个活动作用域。
type resolver struct{}

func newResolver() *resolver {
	return &resolver{}
}

// createInstance 创建 def 描述的服务的新实例。
// 配方执行失败以 ErrConstruction 包装并保留底层原因，永不自动重试。
func (r *resolver) createInstance(ctx Container, def *ServiceDefinition) (any, error) {
	if def.IsValue {
		return def.Impl, nil
	}

	if def.invoke != nil {
		return r.invokeFactory(ctx, def)
	}

	return r.createStruct(ctx, def)
}

// invokeFactory 解析工厂参数并调用预编译的调用器。
func (r *resolver) invokeFactory(ctx Container, def *ServiceDefinition) (any, error) {
	argKeys := def.schema.Args

	args := make([]reflect.Value, len(argKeys))
	for i, key := range argKeys {
		argVal, err := ctx.GetNamed(key.Type, key.Name)
		if err != nil {
			return nil, fmt.Errorf("di: 解析 %v 的参数 %d 失败: %w", def.Key(), i, err)
		}
		args[i] = reflect.ValueOf(argVal)
	}

	instance, err := def.invoke(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %w", ErrConstruction, def.Key(), err)
	}
	return instance, nil
}

// createStruct 实例化结构体并注入带 `di` 标签的字段。
func (r *resolver) createStruct(ctx Container, def *ServiceDefinition) (any, error) {
	implType := def.ImplType
	if implType == nil {
		implType = def.Type
	}

	var val reflect.Value
	if implType.Kind() == reflect.Ptr {
		val = reflect.New(implType.Elem())
	} else {
		val = reflect.New(implType)
	}

	if err := r.injectFields(ctx, val.Elem(), def); err != nil {
		return nil, err
	}

	if implType.Kind() == reflect.Ptr {
		return val.Interface(), nil
	}
	return val.Elem().Interface(), nil
}

func (r *resolver) injectFields(ctx Container, structVal reflect.Value, def *ServiceDefinition) error {
	for _, field := range def.schema.Fields {
		depVal, err := ctx.GetNamed(field.Type, field.ServiceName)
		if err != nil {
			if field.Optional {
				continue
			}
			return fmt.Errorf("di: 注入 %v 的字段 %s 失败: %w", def.Key(), field.Name, err)
		}
		structVal.Field(field.Index).Set(reflect.ValueOf(depVal))
	}
	return nil
}
