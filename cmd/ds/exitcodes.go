package main

import coreerrors "github.com/davidahmann/dotscript/core/errors"

const (
	exitOK                  = 0
	exitInternalFailure     = 1
	exitInvalidInput        = 2
	exitNotInitialized      = 3
	exitRegistryMissing     = 10
	exitNoPackagesFound     = 11
	exitInvalidManifest     = 12
	exitManifestNotFound    = 13
	exitScriptDirNotFound   = 14
	exitPackageNotFound     = 15
	exitNoScriptGiven       = 16
	exitScriptFileMissing   = 17
	exitScriptNotIndexed    = 18
	exitUnknownInterpreter  = 19
	exitIntegrityMismatch   = 20
	exitDeclined            = 21
	exitInterpreterNotFound = 22
	exitStateContention     = 23
	exitRegistryCorrupt     = 24
)

var exitCodeByErrorCode = map[string]int{
	coreerrors.CodeInvalidInput:        exitInvalidInput,
	coreerrors.CodeIOFailure:           exitInternalFailure,
	coreerrors.CodeNotInitialized:      exitNotInitialized,
	coreerrors.CodeRegistryMissing:     exitRegistryMissing,
	coreerrors.CodeNoPackagesFound:     exitNoPackagesFound,
	coreerrors.CodeInvalidManifest:     exitInvalidManifest,
	coreerrors.CodeManifestNotFound:    exitManifestNotFound,
	coreerrors.CodeScriptDirNotFound:   exitScriptDirNotFound,
	coreerrors.CodePackageNotFound:     exitPackageNotFound,
	coreerrors.CodeNoScriptGiven:       exitNoScriptGiven,
	coreerrors.CodeScriptFileMissing:   exitScriptFileMissing,
	coreerrors.CodeScriptNotIndexed:    exitScriptNotIndexed,
	coreerrors.CodeUnknownInterpreter:  exitUnknownInterpreter,
	coreerrors.CodeIntegrityMismatch:   exitIntegrityMismatch,
	coreerrors.CodeDeclined:            exitDeclined,
	coreerrors.CodeInterpreterNotFound: exitInterpreterNotFound,
	coreerrors.CodeStateContention:     exitStateContention,
	coreerrors.CodeRegistryCorrupt:     exitRegistryCorrupt,
}

var errorCodeByExitCode = func() map[int]string {
	reversed := make(map[int]string, len(exitCodeByErrorCode))
	for code, exitCode := range exitCodeByErrorCode {
		if exitCode == exitInternalFailure {
			continue
		}
		reversed[exitCode] = code
	}
	return reversed
}()
