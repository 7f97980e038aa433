/*
 * Copyright 2022 The Gremlins Authors
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

/*
Mutplan decides, for each candidate mutant produced by a mutation-testing
discovery pass, whether it needs to be executed at all and, if so, against
which tests, with what timeout, and under which activation mode.

Usage

Mutplan doesn't discover mutants or run tests itself: it consumes a JSON
file describing the candidate mutants and a prior dry run, and plans what
to do with each of them.

	  $ mutplan plan --input mutants.json

To restrict planning to mutants touched by a git ref:

	  $ mutplan plan --input mutants.json --diff-ref origin/main

To reuse verdicts recorded by a previous run instead of replanning:

	  $ mutplan plan --input mutants.json --report .mutplan-report.json

Configuration

Mutplan uses Viper (https://github.com/spf13/viper) for the configuration.

In particular, the options can be passed in the following ways

 - specific command flags
 - environment variables
 - configuration file

in which each item takes precedence over the following in the list.
The environment variables must be set with the following syntax:

  MUTPLAN_<COMMAND NAME>_<FLAG NAME>

in which every dash in the option name must be replaced with an underscore.

Example:

  $ MUTPLAN_PLAN_IGNORE_STATIC=true mutplan plan --input mutants.json

The configuration must be named
 .mutplan.yaml
and must be in the following format:

 plan:
   ignore-static: false
   diff-ref: ...

and can be placed in one of the following folder (in order)

 - /etc/mutplan (not on Windows)
 - $XDG_CONFIG_HOME/mutplan/mutplan (default ~/.config/mutplan/mutplan)
 - $HOME/.mutplan
 - the Go module root
 - the current folder
*/
package mutplan
