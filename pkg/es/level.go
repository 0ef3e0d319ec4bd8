// Package es models ECMAScript feature levels.
package es

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Level is an ECMAScript edition identified by its publication year.
// ES5 is represented as 2009.
type Level int

// Supported levels.
const (
	ES5    Level = 2009
	ES2015 Level = 2015
	ES2016 Level = 2016
	ES2017 Level = 2017
	ES2018 Level = 2018
	ES2019 Level = 2019
	ES2020 Level = 2020
	ES2021 Level = 2021
	ES2022 Level = 2022
	ES2023 Level = 2023
	ES2024 Level = 2024
	ES2025 Level = 2025

	// Latest is the newest supported level.
	Latest = ES2025
	// Default is the level used when none is configured.
	Default = ES2020
)

// ErrUnknownLevel is returned for levels outside the supported range.
var ErrUnknownLevel = errors.New("unknown ECMAScript level")

// Levels returns all supported levels in ascending order.
func Levels() []Level {
	levels := []Level{ES5}

	for year := ES2015; year <= Latest; year++ {
		levels = append(levels, year)
	}

	return levels
}

// Valid reports whether the level is supported.
func (level Level) Valid() bool {
	return level == ES5 || (level >= ES2015 && level <= Latest)
}

// String renders ES5 or ESyyyy.
func (level Level) String() string {
	if level == ES5 {
		return "ES5"
	}

	return "ES" + strconv.Itoa(int(level))
}

// Edition returns the edition number, 5 for ES5 and 6 for ES2015 onwards.
func (level Level) Edition() int {
	if level < ES2015 {
		return 5
	}

	return int(level-ES2015) + 6
}

// AtLeast reports whether the level includes features of min.
func (level Level) AtLeast(minLevel Level) bool {
	return level >= minLevel
}

// Parse accepts "es5", "5", "es6", "6", "2015", "es2015", "ES2022" and so on.
func Parse(text string) (Level, error) {
	normalized := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(text)), "es")

	number, err := strconv.Atoi(normalized)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, text)
	}

	level := Level(number)

	if number >= 5 && number < 100 {
		level = fromEdition(number)
	}

	if !level.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, text)
	}

	return level, nil
}

func fromEdition(edition int) Level {
	if edition == 5 {
		return ES5
	}

	return ES2015 + Level(edition-6)
}

// MarshalText implements encoding.TextMarshaler.
func (level Level) MarshalText() ([]byte, error) {
	return []byte(level.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (level *Level) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}

	*level = parsed

	return nil
}
