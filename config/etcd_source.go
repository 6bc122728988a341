package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"gopkg.in/yaml.v3"
)

// EtcdOptions etcd 配置源选项。
type EtcdOptions struct {
	Endpoints   []string      // etcd 服务器地址列表
	Username    string        // 用户名（可选）
	Password    string        // 密码（可选）
	Prefix      string        // 键前缀（可选）
	Timeout     time.Duration // 读取超时（默认 5 秒）
	DialTimeout time.Duration // 拨号超时（默认 5 秒）
}

// EtcdSource 从 etcd 读取前缀下的全部键值。
// 值优先按 JSON 解析，其次 YAML，都失败时作为普通字符串。
type EtcdSource struct {
	Options EtcdOptions
}

func (s *EtcdSource) Name() string {
	return fmt.Sprintf("Etcd(%v)", s.Options.Endpoints)
}

func (s *EtcdSource) Load() (map[string]any, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   s.Options.Endpoints,
		Username:    s.Options.Username,
		Password:    s.Options.Password,
		DialTimeout: s.Options.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 etcd 客户端失败: %w", err)
	}
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), s.Options.Timeout)
	defer cancel()

	prefix := s.Options.Prefix
	if prefix == "" {
		prefix = "/"
	}

	resp, err := cli.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("从 etcd 读取配置失败: %w", err)
	}

	result := make(map[string]any)
	for _, kv := range resp.Kvs {
		key := string(kv.Key)
		if s.Options.Prefix != "" {
			key = strings.TrimPrefix(key, s.Options.Prefix)
		}
		key = strings.TrimPrefix(key, "/")
		if key == "" {
			continue
		}

		// etcd 路径分隔符转换为配置层级分隔符
		key = strings.ReplaceAll(key, "/", ":")
		setNestedValue(result, key, decodeEtcdValue(kv.Value))
	}

	return result, nil
}

func decodeEtcdValue(raw []byte) any {
	var jsonValue any
	if err := json.Unmarshal(raw, &jsonValue); err == nil {
		return jsonValue
	}
	var yamlValue any
	if err := yaml.Unmarshal(raw, &yamlValue); err == nil {
		return yamlValue
	}
	return string(raw)
}
