// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agents manages agent definitions.
//
// A Registry owns the agent list, validates every mutation and pushes the
// result into a Sink (the session store). Definitions live in a YAML file
// that is rewritten after each change and reloaded when edited by hand:
//
//	agents:
//	  - id: general
//	    name: General Assistant
//	    system_prompt: You are a helpful and versatile assistant.
//	    active: true
//	    example_prompts:
//	      - How can I be more productive at work?
//
// When the file does not exist the built-in Defaults are used.
package agents
