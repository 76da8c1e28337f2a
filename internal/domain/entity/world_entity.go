// Package entity 定义领域实体
package entity

import "strings"

// WorldEntityKind 世界设定实体类型
type WorldEntityKind string

const (
	KindCharacter WorldEntityKind = "character"
	KindPlace     WorldEntityKind = "place"
	KindObject    WorldEntityKind = "object"
)

// WorldEntityKinds 固定的扫描顺序
var WorldEntityKinds = []WorldEntityKind{KindCharacter, KindPlace, KindObject}

// Dir 实体文件所在的项目相对目录
func (k WorldEntityKind) Dir() string {
	switch k {
	case KindCharacter:
		return "characters"
	case KindPlace:
		return "places"
	default:
		return "objects"
	}
}

// Heading 提示中的分组标题
func (k WorldEntityKind) Heading() string {
	switch k {
	case KindCharacter:
		return "Characters"
	case KindPlace:
		return "Places"
	default:
		return "Objects"
	}
}

// LifeStage 角色某一人生阶段
type LifeStage struct {
	Appearance  string `json:"appearance"`
	Personality string `json:"personality"`
	Motivation  string `json:"motivation"`
}

// WorldEntity 角色 / 地点 / 物品，只读地作为提示上下文
type WorldEntity struct {
	Kind        WorldEntityKind `json:"kind"`
	File        string          `json:"file"`
	Name        string          `json:"name"`
	AKA         string          `json:"aka"`
	Description string          `json:"description"`
	LifeStages  []LifeStage     `json:"lifeStages,omitempty"`
}

// Summary 生成一行简短描述，如 "- Jane (aka J): A tired PI; Appearance: ..."
func (e WorldEntity) Summary() string {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		name = "Unnamed"
	}
	if aka := strings.TrimSpace(e.AKA); aka != "" {
		name += " (aka " + aka + ")"
	}

	parts := make([]string, 0, 4)
	if d := strings.TrimSpace(e.Description); d != "" {
		parts = append(parts, d)
	}
	if e.Kind == KindCharacter && len(e.LifeStages) > 0 {
		// 取最新的人生阶段
		st := e.LifeStages[len(e.LifeStages)-1]
		if v := strings.TrimSpace(st.Appearance); v != "" {
			parts = append(parts, "Appearance: "+v)
		}
		if v := strings.TrimSpace(st.Personality); v != "" {
			parts = append(parts, "Personality: "+v)
		}
		if v := strings.TrimSpace(st.Motivation); v != "" {
			parts = append(parts, "Motivation: "+v)
		}
	}

	if len(parts) == 0 {
		return "- " + name
	}
	return "- " + name + ": " + strings.Join(parts, "; ")
}
